package document

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yaml11Bools are the YAML 1.1 boolean words that YAML 1.2 reads as strings.
// Plain scalars spelled this way are decoded as booleans.
var yaml11Bools = map[string]bool{
	"yes": true, "Yes": true, "YES": true,
	"on": true, "On": true, "ON": true,
	"no": false, "No": false, "NO": false,
	"off": false, "Off": false, "OFF": false,
}

// ErrEmpty is returned for documents without any content.
var ErrEmpty = errors.New("empty config")

// ParseError wraps failures of the structured-text parser.
type ParseError struct {
	msg string
	err error
}

func (e *ParseError) Error() string { return e.msg }
func (e *ParseError) Unwrap() error { return e.err }

// Parse decodes YAML into an ordered Map. The top level must be a non-empty
// mapping.
func Parse(data []byte) (*Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{msg: "YAML: " + err.Error(), err: err}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, &ParseError{msg: "Expected mapping", err: ErrEmpty}
	}
	value, err := convert(root.Content[0])
	if err != nil {
		return nil, &ParseError{msg: "YAML: " + err.Error(), err: err}
	}
	m, ok := value.(*Map)
	if !ok {
		return nil, &ParseError{msg: "Expected mapping"}
	}
	if m.Len() == 0 {
		return nil, &ParseError{msg: "Empty config", err: ErrEmpty}
	}
	return m, nil
}

func convert(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return convert(node.Content[0])
	case yaml.AliasNode:
		return convert(node.Alias)
	case yaml.ScalarNode:
		if b, ok := yaml11Bools[node.Value]; ok && node.Style == 0 && node.ShortTag() == "!!str" {
			return b, nil
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := convert(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return convertMapping(node)
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", node.Line, node.Kind)
	}
}

func convertMapping(node *yaml.Node) (*Map, error) {
	m := NewMap()
	explicit := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		if keyNode.Kind == yaml.AliasNode {
			keyNode = keyNode.Alias
		}
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
		}
		if keyNode.ShortTag() == "!!merge" {
			if err := mergeInto(m, valueNode); err != nil {
				return nil, err
			}
			continue
		}
		value, err := convert(valueNode)
		if err != nil {
			return nil, err
		}
		if explicit[keyNode.Value] {
			return nil, fmt.Errorf("line %d: mapping key %q already defined", keyNode.Line, keyNode.Value)
		}
		explicit[keyNode.Value] = true
		m.Set(keyNode.Value, value)
	}
	return m, nil
}

// mergeInto applies a YAML merge key ("<<"). Keys already present win.
func mergeInto(m *Map, node *yaml.Node) error {
	sources := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		sources = node.Content
	}
	for _, src := range sources {
		value, err := convert(src)
		if err != nil {
			return err
		}
		merged, ok := value.(*Map)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		for _, k := range merged.keys {
			if !m.Has(k) {
				m.Set(k, merged.values[k])
			}
		}
	}
	return nil
}
