package document

import (
	"strconv"
	"strings"

	"git.home.luguber.info/inful/buildconfig/internal/util/sets"
)

// Path addresses a value inside the tree. Sequence elements are addressed
// by their decimal index.
type Path []string

// ParsePath splits a dotted key path ("python.install.0.path").
func ParsePath(dotted string) Path {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

// String renders the dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a new path with seg appended.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// id is used as set member; NUL cannot appear in YAML keys we care about.
func (p Path) id() string {
	return strings.Join(p, "\x00")
}

// ShapeError reports that a path descends through a value that is not a
// mapping (or sequence).
type ShapeError struct {
	Path  Path
	Value any
}

func (e *ShapeError) Error() string {
	return "cannot descend into " + e.Path.String()
}

// Document is a read-only parsed tree plus the set of key paths that a
// validation pass has consumed. The tree itself is never modified; the
// consumed set is what remains "unused" at the end of a pass.
//
// A Document is owned by exactly one validation pass.
type Document struct {
	root     *Map
	consumed sets.Set[string]
	visited  sets.Set[string]
}

// New wraps a parsed root mapping.
func New(root *Map) *Document {
	if root == nil {
		root = NewMap()
	}
	return &Document{
		root:     root,
		consumed: sets.New[string](),
		visited:  sets.New[string](),
	}
}

// Lookup returns the value at path without consuming it. Consumed values are
// reported as absent.
func (d *Document) Lookup(path Path) (any, bool) {
	var current any = d.root
	for i, seg := range path {
		if d.consumed.Has(path[:i+1].id()) {
			return nil, false
		}
		next, ok := child(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Has reports whether the path is present and unconsumed.
func (d *Document) Has(path Path) bool {
	_, ok := d.Lookup(path)
	return ok
}

// Take returns the value at path and marks it consumed. Every container
// traversed on the way is marked visited, so an emptied container does not
// count as left over. A *ShapeError is returned when an intermediate value
// is not a container.
func (d *Document) Take(path Path) (any, bool, error) {
	if len(path) == 0 {
		return nil, false, nil
	}
	var current any = d.root
	for i, seg := range path {
		prefix := path[:i+1]
		if d.consumed.Has(prefix.id()) {
			return nil, false, nil
		}
		switch current.(type) {
		case *Map, []any:
		default:
			return nil, false, &ShapeError{Path: path[:i], Value: current}
		}
		if i > 0 {
			d.visited.Add(path[:i].id())
		}
		next, ok := child(current, seg)
		if !ok {
			return nil, false, nil
		}
		if i == len(path)-1 {
			d.consumed.Add(prefix.id())
			return next, true, nil
		}
		current = next
	}
	return nil, false, nil
}

// MarkVisited records that a validator walked into the container at path,
// so that it is inspected element by element when looking for leftovers.
func (d *Document) MarkVisited(path Path) {
	d.visited.Add(path.id())
}

// FirstRemaining returns the first unconsumed key path, depth first and in
// source order, or nil when everything was consumed.
func (d *Document) FirstRemaining() Path {
	for _, key := range d.root.keys {
		if p := d.remaining(d.root.values[key], Path{key}); p != nil {
			return p
		}
	}
	return nil
}

func (d *Document) remaining(value any, path Path) Path {
	if d.consumed.Has(path.id()) {
		return nil
	}
	visited := d.visited.Has(path.id())
	switch v := value.(type) {
	case *Map:
		for _, key := range v.keys {
			if p := d.remaining(v.values[key], path.Child(key)); p != nil {
				return p
			}
		}
		if v.Len() == 0 && !visited {
			return path
		}
		return nil
	case []any:
		if !visited {
			return path
		}
		for i, elem := range v {
			if p := d.remaining(elem, path.Child(strconv.Itoa(i))); p != nil {
				return p
			}
		}
		return nil
	default:
		return path
	}
}

func child(container any, seg string) (any, bool) {
	switch c := container.(type) {
	case *Map:
		return c.Get(seg)
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
