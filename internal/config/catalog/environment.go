package catalog

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
)

// DefaultDocType is used when the project does not choose a builder.
const DefaultDocType = "sphinx"

// ProjectDefaults are per-project values that fill in what a configuration
// file leaves out. A nil Formats means the project has no format default.
type ProjectDefaults struct {
	PythonVersion       string   `yaml:"python_version" json:"python_version,omitempty"`
	BuildImage          string   `yaml:"build_image" json:"build_image,omitempty"`
	InstallProject      bool     `yaml:"install_project" json:"install_project"`
	UseSystemPackages   bool     `yaml:"use_system_packages" json:"use_system_packages"`
	RequirementsFile    string   `yaml:"requirements_file" json:"requirements_file,omitempty"`
	Formats             []string `yaml:"formats" json:"formats,omitempty" validate:"omitempty,dive,oneof=htmlzip pdf epub"`
	DocType             string   `yaml:"doctype" json:"doctype,omitempty" validate:"omitempty,oneof=sphinx sphinx_htmldir sphinx_singlehtml mkdocs"`
	SphinxConfiguration string   `yaml:"sphinx_configuration" json:"sphinx_configuration,omitempty"`
}

// Environment is everything the build service hands to a validation pass
// besides the configuration file itself.
type Environment struct {
	Catalog  *Catalog
	Defaults ProjectDefaults

	// DefaultBuildImage replaces the catalog default as the starting image
	// of a version 1 build.
	DefaultBuildImage string
	// PythonSupportedVersions is consulted by version 1 builds whose image
	// is not in the catalog.
	PythonSupportedVersions []string
}

// EnvironmentFile is the on-disk form of an Environment, minus the catalog.
type EnvironmentFile struct {
	DefaultBuildImage       string          `yaml:"default_build_image"`
	PythonSupportedVersions []string        `yaml:"python_supported_versions" validate:"omitempty,dive,required"`
	Defaults                ProjectDefaults `yaml:"defaults"`
}

// NewEnvironment builds an environment around a catalog. A nil catalog
// selects the embedded default.
func NewEnvironment(c *Catalog, defaults ProjectDefaults) (*Environment, error) {
	if c == nil {
		var err error
		if c, err = Default(); err != nil {
			return nil, err
		}
	}
	if err := validate.Struct(defaults); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid project defaults").Fatal().Build()
	}
	return &Environment{Catalog: c, Defaults: defaults}, nil
}

// LoadEnvironment reads an EnvironmentFile and binds it to c.
func LoadEnvironment(c *Catalog, path string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read project defaults").
			WithContext("path", path).
			Build()
	}
	var file EnvironmentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "parse project defaults").
			WithContext("path", path).
			Fatal().
			Build()
	}
	if err := validate.Struct(file); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid project defaults").
			WithContext("path", path).
			Fatal().
			Build()
	}
	env, err := NewEnvironment(c, file.Defaults)
	if err != nil {
		return nil, err
	}
	env.DefaultBuildImage = file.DefaultBuildImage
	env.PythonSupportedVersions = file.PythonSupportedVersions
	return env, nil
}

// DocType returns the project's default builder.
func (e *Environment) DocType() string {
	if e.Defaults.DocType == "" {
		return DefaultDocType
	}
	return e.Defaults.DocType
}

// StartImage is the build image a version 1 configuration starts from.
func (e *Environment) StartImage() string {
	if e.DefaultBuildImage != "" {
		return e.DefaultBuildImage
	}
	return e.Catalog.DefaultImage()
}
