// Package catalog provides the environment side of configuration
// validation: the global catalog of build images, operating systems and tool
// versions, and the per-project defaults injected by the build service.
//
// Catalogs and environments are read-only once constructed and are shared by
// any number of concurrent validation passes.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
	"git.home.luguber.info/inful/buildconfig/internal/util/sets"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// PythonSettings lists the interpreters installed in a legacy build image.
type PythonSettings struct {
	SupportedVersions []string          `yaml:"supported_versions" json:"supported_versions" validate:"required,min=1,dive,required"`
	DefaultVersion    map[string]string `yaml:"default_version" json:"default_version" validate:"required"`
}

// ImageSettings describes one legacy build image.
type ImageSettings struct {
	Python PythonSettings `yaml:"python" json:"python"`
}

// Catalog is the matrix of supported images, operating systems and tools.
type Catalog struct {
	ImageNamespace      string                       `yaml:"image_namespace" json:"image_namespace" validate:"required"`
	DefaultImageVersion string                       `yaml:"default_image_version" json:"default_image_version" validate:"required"`
	Images              map[string]ImageSettings     `yaml:"images" json:"images" validate:"required,min=1,dive"`
	ImageAliases        map[string]string            `yaml:"image_aliases" json:"image_aliases,omitempty"`
	OS                  map[string]string            `yaml:"os" json:"os" validate:"required,min=1,dive,required"`
	Tools               map[string]map[string]string `yaml:"tools" json:"tools" validate:"required,min=1,dive,min=1"`
}

var (
	validate     = validator.New()
	numericImage = regexp.MustCompile(`^[\d.]+$`)

	// The named image tags are always accepted, even when the catalog does
	// not list them explicitly.
	namedImages = []string{"stable", "latest", "testing"}

	loadDefault = sync.OnceValues(func() (*Catalog, error) {
		return Parse(defaultCatalogYAML)
	})
)

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return loadDefault()
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read catalog").
			WithContext("path", path).
			Build()
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "parse catalog").Fatal().Build()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks struct constraints and cross references.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid catalog").Fatal().Build()
	}
	if _, ok := c.ImageSettings(c.DefaultImage()); !ok {
		return ferrors.ValidationError("catalog default image has no settings").
			WithContext("image", c.DefaultImage()).
			Build()
	}
	for alias, target := range c.ImageAliases {
		if _, ok := c.Images[c.QualifyImage(target)]; !ok {
			return ferrors.ValidationError("catalog image alias points to an unknown image").
				WithContext("alias", alias).
				WithContext("image", target).
				Build()
		}
	}
	return nil
}

// DefaultImage is the fully qualified image used when nothing else is chosen.
func (c *Catalog) DefaultImage() string {
	return c.QualifyImage(c.DefaultImageVersion)
}

// QualifyImage prefixes a bare tag with the image namespace.
func (c *Catalog) QualifyImage(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return c.ImageNamespace + ":" + name
}

// ImageSettings looks up a fully qualified image, following tag aliases.
func (c *Catalog) ImageSettings(image string) (ImageSettings, bool) {
	if s, ok := c.Images[image]; ok {
		return s, true
	}
	repo, tag, found := strings.Cut(image, ":")
	if !found || repo != c.ImageNamespace {
		return ImageSettings{}, false
	}
	if target, ok := c.ImageAliases[tag]; ok {
		s, ok := c.Images[c.QualifyImage(target)]
		return s, ok
	}
	return ImageSettings{}, false
}

// ImageSettingsOrDefault falls back to the default image for unknown images.
func (c *Catalog) ImageSettingsOrDefault(image string) ImageSettings {
	if s, ok := c.ImageSettings(image); ok {
		return s
	}
	s, _ := c.ImageSettings(c.DefaultImage())
	return s
}

// ValidImageNames returns the values users may put in build.image: the
// named tags plus every numeric tag of the catalog.
func (c *Catalog) ValidImageNames() []string {
	names := sets.New(namedImages...)
	for image := range c.Images {
		if _, tag, ok := strings.Cut(image, ":"); ok && numericImage.MatchString(tag) {
			names.Add(tag)
		}
	}
	return sets.Sorted(names)
}

// PythonVersions returns the union of the python versions of all images.
func (c *Catalog) PythonVersions() []string {
	versions := sets.New[string]()
	for _, s := range c.Images {
		versions = versions.Union(sets.New(s.Python.SupportedVersions...))
	}
	return sets.Sorted(versions)
}

// OperatingSystems returns the accepted build.os values.
func (c *Catalog) OperatingSystems() []string {
	return sortedKeys(c.OS)
}

// OSImage maps an operating system to its build image.
func (c *Catalog) OSImage(osName string) (string, bool) {
	image, ok := c.OS[osName]
	return image, ok
}

// ToolNames returns the accepted build.tools keys.
func (c *Catalog) ToolNames() []string {
	return sortedKeys(c.Tools)
}

// ToolVersions returns the accepted versions for tool.
func (c *Catalog) ToolVersions(tool string) []string {
	return sortedKeys(c.Tools[tool])
}

// ToolFullVersion resolves a short tool version to the installed version.
func (c *Catalog) ToolFullVersion(tool, version string) (string, bool) {
	full, ok := c.Tools[tool][version]
	return full, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := sets.New[string]()
	for k := range m {
		keys.Add(k)
	}
	return sets.Sorted(keys)
}
