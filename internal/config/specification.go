package config

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
	"git.home.luguber.info/inful/buildconfig/internal/foundation"
)

// DocType identifies the documentation builder.
type DocType string

const (
	DocTypeSphinx           DocType = "sphinx"
	DocTypeSphinxHTMLDir    DocType = "sphinx_htmldir"
	DocTypeSphinxSingleHTML DocType = "sphinx_singlehtml"
	DocTypeMkdocs           DocType = "mkdocs"
	DocTypeGeneric          DocType = "generic"
)

// InstallMethod selects how a python package is installed.
type InstallMethod string

const (
	MethodPip        InstallMethod = "pip"
	MethodSetuptools InstallMethod = "setuptools"
)

// ValidFormats lists the additional formats a project can build.
var ValidFormats = []string{"htmlzip", "pdf", "epub"}

// JobNames lists the build lifecycle phases accepted under build.jobs, in
// execution order.
var JobNames = []string{
	"post_checkout",
	"pre_system_dependencies",
	"post_system_dependencies",
	"pre_create_environment",
	"post_create_environment",
	"pre_install",
	"post_install",
	"pre_build",
	"post_build",
}

// publicOptions are the top level options every schema version provides.
var publicOptions = []string{
	"version",
	"formats",
	"python",
	"conda",
	"build",
	"doctype",
	"sphinx",
	"mkdocs",
	"submodules",
	"search",
}

// BuildEnvironment is either a *BuildImage (legacy) or a *BuildWithOS.
type BuildEnvironment interface {
	Packages() []string
	asMap() map[string]any
}

// BuildImage is a legacy build running in a single opaque image.
type BuildImage struct {
	Image       string   `json:"image" yaml:"image"`
	AptPackages []string `json:"apt_packages" yaml:"apt_packages"`
}

func (b *BuildImage) Packages() []string { return b.AptPackages }

func (b *BuildImage) asMap() map[string]any {
	return map[string]any{
		"image":        b.Image,
		"apt_packages": nonNil(b.AptPackages),
	}
}

// BuildTool is a pinned tool version and the concrete version it installs.
type BuildTool struct {
	Version     string `json:"version" yaml:"version"`
	FullVersion string `json:"full_version" yaml:"full_version"`
}

// BuildJobs maps lifecycle phases to the commands run in them.
type BuildJobs map[string][]string

// Commands returns the commands for phase, never nil.
func (j BuildJobs) Commands(phase string) []string {
	return nonNil(j[phase])
}

// BuildWithOS is a build on an operating system image with pinned tools.
type BuildWithOS struct {
	OS          string               `json:"os" yaml:"os"`
	Tools       map[string]BuildTool `json:"tools" yaml:"tools"`
	Jobs        BuildJobs            `json:"jobs" yaml:"jobs"`
	Commands    []string             `json:"commands" yaml:"commands"`
	AptPackages []string             `json:"apt_packages" yaml:"apt_packages"`
}

func (b *BuildWithOS) Packages() []string { return b.AptPackages }

func (b *BuildWithOS) asMap() map[string]any {
	tools := make(map[string]any, len(b.Tools))
	for name, tool := range b.Tools {
		tools[name] = map[string]any{"version": tool.Version, "full_version": tool.FullVersion}
	}
	jobs := make(map[string]any, len(JobNames))
	for _, name := range JobNames {
		jobs[name] = b.Jobs.Commands(name)
	}
	return map[string]any{
		"os":           b.OS,
		"tools":        tools,
		"jobs":         jobs,
		"commands":     nonNil(b.Commands),
		"apt_packages": nonNil(b.AptPackages),
	}
}

// PythonInstallStep is a *PythonInstallRequirements or a *PythonInstall.
type PythonInstallStep interface {
	asMap() map[string]any
}

// PythonInstallRequirements installs a requirements file. A None
// requirements path asks the builder to look for one.
type PythonInstallRequirements struct {
	Requirements foundation.Option[string] `json:"requirements" yaml:"requirements"`
}

func (p *PythonInstallRequirements) asMap() map[string]any {
	return map[string]any{"requirements": optional(p.Requirements)}
}

// PythonInstall installs the package at Path.
type PythonInstall struct {
	Path              string        `json:"path" yaml:"path"`
	Method            InstallMethod `json:"method" yaml:"method"`
	ExtraRequirements []string      `json:"extra_requirements" yaml:"extra_requirements"`
}

func (p *PythonInstall) asMap() map[string]any {
	return map[string]any{
		"path":               p.Path,
		"method":             string(p.Method),
		"extra_requirements": nonNil(p.ExtraRequirements),
	}
}

// Python holds the python environment settings.
type Python struct {
	Version               foundation.Option[string]
	Install               []PythonInstallStep
	UseSystemSitePackages bool
}

func (p Python) asMap() map[string]any {
	install := make([]any, len(p.Install))
	for i, step := range p.Install {
		install[i] = step.asMap()
	}
	return map[string]any{
		"version":                  optional(p.Version),
		"install":                  install,
		"use_system_site_packages": p.UseSystemSitePackages,
	}
}

// Conda points at a conda environment file.
type Conda struct {
	Environment string `json:"environment" yaml:"environment"`
}

// Sphinx configures a sphinx build.
type Sphinx struct {
	Builder       DocType
	Configuration foundation.Option[string]
	FailOnWarning bool
}

// Mkdocs configures an mkdocs build.
type Mkdocs struct {
	Configuration foundation.Option[string]
	FailOnWarning bool
}

// SubmoduleSet is either every submodule or an explicit list of names.
type SubmoduleSet struct {
	All   bool
	Names []string
}

// AllSubmodules selects every submodule.
var AllSubmodules = SubmoduleSet{All: true}

// IsEmpty reports whether the set selects nothing.
func (s SubmoduleSet) IsEmpty() bool {
	return !s.All && len(s.Names) == 0
}

func (s SubmoduleSet) value() any {
	if s.All {
		return "all"
	}
	return nonNil(s.Names)
}

// Submodules selects the git submodules checked out for the build.
type Submodules struct {
	Include   SubmoduleSet
	Exclude   SubmoduleSet
	Recursive bool
}

// Search tunes the search index.
type Search struct {
	Ranking map[string]int
	Ignore  []string
}

// Specification is the validated build configuration. It is never modified
// after validation and may be shared between goroutines. Loaders with a
// SpecCache hand the same value to every caller, so callers must treat its
// slices and maps as read-only.
type Specification struct {
	Version    int
	Formats    []string
	Build      BuildEnvironment
	Python     Python
	Conda      *Conda
	DocType    DocType
	Sphinx     *Sphinx
	Mkdocs     *Mkdocs
	Submodules Submodules
	Search     Search

	// SourceFile is the configuration file, empty for in-memory documents.
	SourceFile string
	// BasePath is the directory every path in the Specification is relative to.
	BasePath string

	catalog *catalog.Catalog
}

// Option looks up a top level option by name. Names the schema version does
// not provide fail with *ConfigOptionNotSupportedError.
func (s *Specification) Option(name string) foundation.Result[any, error] {
	if !slices.Contains(publicOptions, name) {
		return foundation.Err[any, error](&ConfigOptionNotSupportedError{Option: name})
	}
	var v any
	switch name {
	case "version":
		v = s.Version
	case "formats":
		v = s.Formats
	case "python":
		v = s.Python
	case "conda":
		v = s.Conda
	case "build":
		v = s.Build
	case "doctype":
		v = s.DocType
	case "sphinx":
		v = s.Sphinx
	case "mkdocs":
		v = s.Mkdocs
	case "submodules":
		v = s.Submodules
	case "search":
		v = s.Search
	}
	return foundation.Ok[any, error](v)
}

// AsMap renders the public options as plain maps, lists and scalars.
func (s *Specification) AsMap() map[string]any {
	out := map[string]any{
		"version":    strconv.Itoa(s.Version),
		"formats":    nonNil(s.Formats),
		"python":     s.Python.asMap(),
		"conda":      nil,
		"build":      nil,
		"doctype":    string(s.DocType),
		"sphinx":     nil,
		"mkdocs":     nil,
		"submodules": map[string]any{"include": s.Submodules.Include.value(), "exclude": s.Submodules.Exclude.value(), "recursive": s.Submodules.Recursive},
		"search":     map[string]any{"ranking": nonNilMap(s.Search.Ranking), "ignore": nonNil(s.Search.Ignore)},
	}
	if s.Conda != nil {
		out["conda"] = map[string]any{"environment": s.Conda.Environment}
	}
	if s.Build != nil {
		out["build"] = s.Build.asMap()
	}
	if s.Sphinx != nil {
		out["sphinx"] = map[string]any{
			"builder":         string(s.Sphinx.Builder),
			"configuration":   optional(s.Sphinx.Configuration),
			"fail_on_warning": s.Sphinx.FailOnWarning,
		}
	}
	if s.Mkdocs != nil {
		out["mkdocs"] = map[string]any{
			"configuration":   optional(s.Mkdocs.Configuration),
			"fail_on_warning": s.Mkdocs.FailOnWarning,
		}
	}
	return out
}

// MarshalJSON renders AsMap.
func (s *Specification) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.AsMap())
}

// MarshalYAML renders AsMap.
func (s *Specification) MarshalYAML() (any, error) {
	return s.AsMap(), nil
}

// UsingBuildTools reports whether the build uses an OS image with pinned tools.
func (s *Specification) UsingBuildTools() bool {
	_, ok := s.Build.(*BuildWithOS)
	return ok
}

// PythonInterpreter returns the interpreter command used to create the
// environment, or "" when a tool based build pins no python.
func (s *Specification) PythonInterpreter() string {
	if b, ok := s.Build.(*BuildWithOS); ok {
		tool, ok := b.Tools["python"]
		switch {
		case !ok:
			return ""
		case strings.HasPrefix(tool.Version, "mamba"):
			return "mamba"
		case strings.HasPrefix(tool.Version, "miniconda"):
			return "conda"
		default:
			return "python"
		}
	}
	version := s.PythonFullVersion()
	if strings.HasPrefix(version, "pypy") {
		return version
	}
	return "python" + version
}

// DockerImage returns the image the build runs in.
func (s *Specification) DockerImage() string {
	switch b := s.Build.(type) {
	case *BuildWithOS:
		image, _ := s.catalog.OSImage(b.OS)
		return image
	case *BuildImage:
		return b.Image
	default:
		return ""
	}
}

// PythonFullVersion resolves the major versions "2" and "3" to the default
// minor version of the build image. Tool based builds report the installed
// python version.
func (s *Specification) PythonFullVersion() string {
	if b, ok := s.Build.(*BuildWithOS); ok {
		return b.Tools["python"].FullVersion
	}
	version := s.Python.Version.UnwrapOr("")
	if version != "2" && version != "3" {
		return version
	}
	image := s.DockerImage()
	settings := s.catalog.ImageSettingsOrDefault(image)
	if full, ok := settings.Python.DefaultVersion[version]; ok {
		return full
	}
	return version
}

// IsUsingConda reports whether the environment is created with conda or mamba.
func (s *Specification) IsUsingConda() bool {
	if s.UsingBuildTools() {
		interpreter := s.PythonInterpreter()
		return interpreter == "conda" || interpreter == "mamba"
	}
	return s.Conda != nil
}

// IsUsingSetupPyInstall reports whether any install step uses setuptools.
func (s *Specification) IsUsingSetupPyInstall() bool {
	for _, step := range s.Python.Install {
		if install, ok := step.(*PythonInstall); ok && install.Method == MethodSetuptools {
			return true
		}
	}
	return false
}

func optional[T any](o foundation.Option[T]) any {
	if v, ok := o.Get(); ok {
		return v
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return m
}
