package config

import (
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/buildconfig/internal/config/document"
	"git.home.luguber.info/inful/buildconfig/internal/config/validation"
	"git.home.luguber.info/inful/buildconfig/internal/foundation"
)

var (
	aptPackageName     = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.+-]*$`)
	aptInvalidPrefixes = []string{"-", "/", "."}

	sphinxBuilderNames = []string{"html", "htmldir", "dirhtml", "singlehtml"}
	sphinxBuilders     = map[string]DocType{
		"html":       DocTypeSphinx,
		"htmldir":    DocTypeSphinxHTMLDir,
		"dirhtml":    DocTypeSphinxHTMLDir,
		"singlehtml": DocTypeSphinxSingleHTML,
	}

	installMethods = []string{string(MethodPip), string(MethodSetuptools)}

	// DefaultSearchIgnore are generated pages kept out of the search index.
	DefaultSearchIgnore = []string{"search.html", "search/index.html", "404.html", "404/index.html"}

	searchRanks = func() []int {
		ranks := make([]int, 0, 21)
		for r := -10; r <= 10; r++ {
			ranks = append(ranks, r)
		}
		return ranks
	}()
)

const allKeyword = "all"

// SchemaV2 validates version 2 documents. Every key of the document must be
// understood; the first leftover key is reported as invalid-key.
type SchemaV2 struct {
	*schemaBase

	pipeline *pipeline

	build  memo[BuildEnvironment]
	mkdocs memo[*Mkdocs]
	spec   *Specification
}

func newSchemaV2(base *schemaBase) *SchemaV2 {
	s := &SchemaV2{
		schemaBase: base,
		build:      memo[BuildEnvironment]{name: "build"},
		mkdocs:     memo[*Mkdocs]{name: "mkdocs"},
		spec:       base.newSpecification(2),
	}
	s.pipeline = newPipeline(
		stage{name: "formats", run: s.validateFormats},
		stage{name: "conda", run: s.validateConda},
		stage{name: "build", run: s.validateBuild},
		stage{name: "python", needs: []string{"build"}, run: s.validatePython},
		stage{name: "doc_types", run: s.validateDocTypes},
		stage{name: "mkdocs", needs: []string{"doc_types"}, run: s.validateMkdocs},
		stage{name: "sphinx", needs: []string{"doc_types", "mkdocs"}, run: s.validateSphinx},
		stage{name: "submodules", run: s.validateSubmodules},
		stage{name: "search", run: s.validateSearch},
		stage{name: "keys", needs: []string{"formats", "conda", "build", "python", "mkdocs", "sphinx", "submodules", "search"}, run: s.validateKeys},
	)
	return s
}

func (s *SchemaV2) Version() int     { return 2 }
func (s *SchemaV2) Stages() []string { return s.pipeline.names() }

// Validate runs the stages and returns the Specification.
func (s *SchemaV2) Validate() (*Specification, error) {
	if err := s.begin(2); err != nil {
		return nil, err
	}
	if err := s.pipeline.run(s.logger, s.recorder); err != nil {
		return nil, err
	}
	spec := s.spec
	spec.Build = s.build.get()
	spec.Mkdocs = s.mkdocs.get()
	switch {
	case s.usingBuildTools() && len(spec.Build.(*BuildWithOS).Commands) > 0:
		spec.DocType = DocTypeGeneric
	case spec.Mkdocs != nil:
		spec.DocType = DocTypeMkdocs
	default:
		spec.DocType = spec.Sphinx.Builder
	}
	return spec, nil
}

func (s *SchemaV2) usingBuildTools() bool {
	_, ok := s.build.get().(*BuildWithOS)
	return ok
}

// section returns the mapping stored under key, or an empty mapping when
// the key is absent.
func (s *SchemaV2) section(key string) (*document.Map, error) {
	raw, ok := s.get(key)
	if !ok {
		return document.NewMap(), nil
	}
	var m *document.Map
	err := s.catch(key, func() error {
		var err error
		m, err = validation.Dict(raw)
		return err
	})
	return m, err
}

func (s *SchemaV2) validateFormats() error {
	v, err := s.pop("formats", []any{}, false)
	if err != nil {
		return err
	}
	if v == allKeyword {
		s.spec.Formats = append([]string(nil), ValidFormats...)
		return nil
	}
	s.spec.Formats = []string{}
	return s.catch("formats", func() error {
		list, err := validation.List(v)
		if err != nil {
			return err
		}
		for _, item := range list {
			format, err := validation.Choice(item, ValidFormats)
			if err != nil {
				return err
			}
			s.spec.Formats = append(s.spec.Formats, format)
		}
		return nil
	})
}

func (s *SchemaV2) validateConda() error {
	raw, _ := s.get("conda")
	if raw == nil {
		return nil
	}
	if _, err := s.section("conda"); err != nil {
		return err
	}
	return s.catch("conda.environment", func() error {
		v, err := s.pop("conda.environment", nil, true)
		if err != nil {
			return err
		}
		env, err := validation.Path(v, s.basePath)
		if err != nil {
			return err
		}
		s.spec.Conda = &Conda{Environment: env}
		return nil
	})
}

func (s *SchemaV2) validateBuild() error {
	build, err := s.section("build")
	if err != nil {
		return err
	}
	if build.Has("os") || build.Has("commands") || build.Has("tools") {
		return s.validateBuildWithOS()
	}
	return s.validateBuildImage()
}

// validateBuildWithOS handles the os/tools form of the build section.
func (s *SchemaV2) validateBuildWithOS() error {
	cat := s.catalog()
	build := &BuildWithOS{Tools: map[string]BuildTool{}, Jobs: BuildJobs{}, Commands: []string{}}

	err := s.catch("build.os", func() error {
		v, err := s.pop("build.os", nil, true)
		if err != nil {
			return err
		}
		build.OS, err = validation.Choice(v, cat.OperatingSystems())
		return err
	})
	if err != nil {
		return err
	}

	var tools *document.Map
	err = s.catch("build.tools", func() error {
		v, err := s.pop("build.tools", nil, false)
		if err != nil || !truthy(v) {
			return err
		}
		if tools, err = validation.Dict(v); err != nil {
			return err
		}
		for _, name := range tools.Keys() {
			if _, err := validation.Choice(name, cat.ToolNames()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var jobs *document.Map
	err = s.catch("build.jobs", func() error {
		v, err := s.pop("build.jobs", document.NewMap(), false)
		if err != nil {
			return err
		}
		if jobs, err = validation.Dict(v); err != nil {
			return err
		}
		for _, name := range jobs.Keys() {
			if _, err := validation.Choice(name, JobNames); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var commands []any
	err = s.catch("build.commands", func() error {
		v, err := s.pop("build.commands", []any{}, false)
		if err != nil {
			return err
		}
		commands, err = validation.List(v)
		return err
	})
	if err != nil {
		return err
	}

	if tools == nil && len(commands) == 0 {
		return s.fail("build.tools", "At least one item should be provided in 'tools' or 'commands'", CodeRequired)
	}
	if len(commands) > 0 && jobs.Len() > 0 {
		return s.fail("build.commands", "The keys build.jobs and build.commands can't be used together.", CodeInvalidKeysCombination)
	}

	for _, job := range jobs.Keys() {
		key := "build.jobs." + job
		err := s.catch(key, func() error {
			raw, _ := jobs.Get(job)
			lines, err := validation.Strings(raw)
			build.Jobs[job] = lines
			return err
		})
		if err != nil {
			return err
		}
	}

	for _, command := range commands {
		err := s.catch("build.commands", func() error {
			line, err := validation.String(command)
			if err != nil {
				return err
			}
			build.Commands = append(build.Commands, line)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if tools != nil {
		for _, name := range tools.Keys() {
			err := s.catch("build.tools."+name, func() error {
				raw, _ := tools.Get(name)
				version, err := validation.Choice(raw, cat.ToolVersions(name))
				if err != nil {
					return err
				}
				full, _ := cat.ToolFullVersion(name, version)
				build.Tools[name] = BuildTool{Version: version, FullVersion: full}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}

	packages, err := s.validateAptPackages()
	if err != nil {
		return err
	}
	build.AptPackages = packages
	s.build.assign(build)
	return nil
}

// validateBuildImage handles the legacy single image form of the build section.
func (s *SchemaV2) validateBuildImage() error {
	cat := s.catalog()
	build := &BuildImage{}
	err := s.catch("build.image", func() error {
		v, err := s.pop("build.image", cat.DefaultImageVersion, false)
		if err != nil {
			return err
		}
		tag, err := validation.Choice(v, cat.ValidImageNames())
		if err != nil {
			return err
		}
		build.Image = cat.ImageNamespace + ":" + tag
		if override := s.env.Defaults.BuildImage; override != "" {
			build.Image = override
		}
		return nil
	})
	if err != nil {
		return err
	}

	packages, err := s.validateAptPackages()
	if err != nil {
		return err
	}
	build.AptPackages = packages
	s.build.assign(build)
	return nil
}

func (s *SchemaV2) validateAptPackages() ([]string, error) {
	var raw []any
	err := s.catch("build.apt_packages", func() error {
		v, ok := s.get("build.apt_packages")
		if !ok {
			v = []any{}
		}
		var err error
		raw, err = validation.List(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		_, _ = s.pop("build.apt_packages", nil, false)
		return []string{}, nil
	}

	s.doc.MarkVisited(document.ParsePath("build.apt_packages"))
	packages := make([]string, 0, len(raw))
	for i := range raw {
		pkg, err := s.validateAptPackage(i)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// validateAptPackage rejects names apt would read as an option or a path.
func (s *SchemaV2) validateAptPackage(index int) (string, error) {
	key := fmt.Sprintf("build.apt_packages.%d", index)
	v, err := s.pop(key, nil, false)
	if err != nil {
		return "", err
	}
	var pkg string
	err = s.catch(key, func() error {
		name, err := validation.String(v)
		if err != nil {
			return err
		}
		pkg = strings.TrimSpace(name)
		for _, prefix := range aptInvalidPrefixes {
			if strings.HasPrefix(pkg, prefix) {
				return s.fail(key, fmt.Sprintf("Invalid package name. Package can't start with %s.", prefix), CodeInvalidName)
			}
		}
		if !aptPackageName.MatchString(pkg) {
			return s.fail(key, "Invalid package name.", CodeInvalidName)
		}
		return nil
	})
	return pkg, err
}

// validatePython must run after build: the python version is only read for
// image builds, tool builds pin python under build.tools.
func (s *SchemaV2) validatePython() error {
	if _, err := s.section("python"); err != nil {
		return err
	}
	py := Python{Version: foundation.None[string](), Install: []PythonInstallStep{}}

	if !s.usingBuildTools() {
		err := s.catch("python.version", func() error {
			v, err := s.pop("python.version", "3", false)
			if err != nil {
				return err
			}
			// An unquoted 3.10 is read as the float 3.1.
			if f, ok := v.(float64); ok && f == 3.1 {
				v = "3.10"
			}
			image := s.build.get().(*BuildImage).Image
			supported := s.catalog().ImageSettingsOrDefault(image).Python.SupportedVersions
			version, err := validation.Choice(scalarString(v), supported)
			if err != nil {
				return err
			}
			py.Version = foundation.Some(version)
			return nil
		})
		if err != nil {
			return err
		}
	}

	var raw []any
	err := s.catch("python.install", func() error {
		v, ok := s.get("python.install")
		if !ok {
			v = []any{}
		}
		var err error
		if raw, err = validation.List(v); err != nil {
			return err
		}
		if len(raw) == 0 {
			_, err = s.pop("python.install", nil, false)
			return err
		}
		s.doc.MarkVisited(document.ParsePath("python.install"))
		return nil
	})
	if err != nil {
		return err
	}
	for i := range raw {
		step, err := s.validatePythonInstall(i)
		if err != nil {
			return err
		}
		py.Install = append(py.Install, step)
	}

	err = s.catch("python.system_packages", func() error {
		v, err := s.pop("python.system_packages", false, false)
		if err != nil {
			return err
		}
		py.UseSystemSitePackages, err = validation.Bool(v)
		return err
	})
	if err != nil {
		return err
	}
	s.spec.Python = py
	return nil
}

// validatePythonInstall validates python.install.N, which either installs a
// requirements file or a local package.
func (s *SchemaV2) validatePythonInstall(index int) (PythonInstallStep, error) {
	key := fmt.Sprintf("python.install.%d", index)
	raw, _ := s.get(key)
	var entry *document.Map
	err := s.catch(key, func() error {
		var err error
		entry, err = validation.Dict(raw)
		return err
	})
	if err != nil {
		return nil, err
	}

	switch {
	case entry.Has("requirements"):
		step := &PythonInstallRequirements{}
		err := s.catch(key+".requirements", func() error {
			v, err := s.pop(key+".requirements", nil, false)
			if err != nil {
				return err
			}
			path, err := validation.Path(v, s.basePath)
			if err != nil {
				return err
			}
			step.Requirements = foundation.Some(path)
			return nil
		})
		return step, err

	case entry.Has("path"):
		step := &PythonInstall{}
		err := s.catch(key+".path", func() error {
			v, err := s.pop(key+".path", nil, false)
			if err != nil {
				return err
			}
			step.Path, err = validation.Path(v, s.basePath)
			return err
		})
		if err != nil {
			return nil, err
		}

		err = s.catch(key+".method", func() error {
			v, err := s.pop(key+".method", string(MethodPip), false)
			if err != nil {
				return err
			}
			method, err := validation.Choice(v, installMethods)
			step.Method = InstallMethod(method)
			return err
		})
		if err != nil {
			return nil, err
		}

		extrasKey := key + ".extra_requirements"
		err = s.catch(extrasKey, func() error {
			v, err := s.pop(extrasKey, []any{}, false)
			if err != nil {
				return err
			}
			extras, err := validation.List(v)
			if err != nil {
				return err
			}
			if len(extras) > 0 && step.Method != MethodPip {
				return s.fail(extrasKey, "You need to install your project with pip to use extra_requirements", CodePythonInvalid)
			}
			step.ExtraRequirements, err = validation.Strings(extras)
			return err
		})
		if err != nil {
			return nil, err
		}
		return step, nil

	default:
		return nil, s.fail(key, `"path" or "requirements" key is required`, CodeRequired)
	}
}

func (s *SchemaV2) validateDocTypes() error {
	if s.has("sphinx") && s.has("mkdocs") {
		return s.fail(".", "You can not have the ``sphinx`` and ``mkdocs`` keys at the same time", CodeInvalidKeysCombination)
	}
	return nil
}

func (s *SchemaV2) validateMkdocs() error {
	raw, _ := s.get("mkdocs")
	if raw == nil {
		s.mkdocs.assign(nil)
		return nil
	}
	if _, err := s.section("mkdocs"); err != nil {
		return err
	}

	mkdocs := &Mkdocs{Configuration: foundation.None[string]()}
	err := s.catch("mkdocs.configuration", func() error {
		v, err := s.pop("mkdocs.configuration", nil, false)
		if err != nil || v == nil {
			return err
		}
		path, err := validation.Path(v, s.basePath)
		if err != nil {
			return err
		}
		mkdocs.Configuration = foundation.Some(path)
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.popFlag("mkdocs.fail_on_warning", &mkdocs.FailOnWarning); err != nil {
		return err
	}
	s.mkdocs.assign(mkdocs)
	return nil
}

// validateSphinx defaults to a sphinx build unless mkdocs is configured.
func (s *SchemaV2) validateSphinx() error {
	raw, ok := s.get("sphinx")
	if raw == nil {
		if s.mkdocs.get() != nil {
			return nil
		}
		if !ok {
			raw = document.NewMap()
		}
	}
	// A null sphinx key is left in place, reading through it fails below.
	if raw != nil {
		err := s.catch("sphinx", func() error {
			_, err := validation.Dict(raw)
			return err
		})
		if err != nil {
			return err
		}
	}

	sphinx := &Sphinx{Configuration: foundation.None[string]()}
	err := s.catch("sphinx.builder", func() error {
		v, err := s.pop("sphinx.builder", "html", false)
		if err != nil {
			return err
		}
		builder, err := validation.Choice(v, sphinxBuilderNames)
		sphinx.Builder = sphinxBuilders[builder]
		return err
	})
	if err != nil {
		return err
	}

	err = s.catch("sphinx.configuration", func() error {
		var def any
		if cfg := s.env.Defaults.SphinxConfiguration; cfg != "" {
			def = cfg
		}
		v, err := s.pop("sphinx.configuration", def, false)
		if err != nil || v == nil {
			return err
		}
		path, err := validation.Path(v, s.basePath)
		if err != nil {
			return err
		}
		sphinx.Configuration = foundation.Some(path)
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.popFlag("sphinx.fail_on_warning", &sphinx.FailOnWarning); err != nil {
		return err
	}
	s.spec.Sphinx = sphinx
	return nil
}

func (s *SchemaV2) popFlag(key string, dst *bool) error {
	return s.catch(key, func() error {
		v, err := s.pop(key, false, false)
		if err != nil {
			return err
		}
		*dst, err = validation.Bool(v)
		return err
	})
}

func (s *SchemaV2) validateSubmodules() error {
	if _, err := s.section("submodules"); err != nil {
		return err
	}
	submodules := Submodules{}

	err := s.catch("submodules.include", func() error {
		v, err := s.pop("submodules.include", []any{}, false)
		if err != nil {
			return err
		}
		submodules.Include, err = submoduleSet(v)
		return err
	})
	if err != nil {
		return err
	}

	err = s.catch("submodules.exclude", func() error {
		var def any = allKeyword
		if !submodules.Include.IsEmpty() {
			def = []any{}
		}
		v, err := s.pop("submodules.exclude", def, false)
		if err != nil {
			return err
		}
		submodules.Exclude, err = submoduleSet(v)
		return err
	})
	if err != nil {
		return err
	}

	if !submodules.Include.IsEmpty() && !submodules.Exclude.IsEmpty() {
		return s.fail("submodules", "You can not exclude and include submodules at the same time", CodeSubmodulesInvalid)
	}

	if err := s.popFlag("submodules.recursive", &submodules.Recursive); err != nil {
		return err
	}
	s.spec.Submodules = submodules
	return nil
}

func submoduleSet(v any) (SubmoduleSet, error) {
	if v == allKeyword {
		return AllSubmodules, nil
	}
	names, err := validation.Strings(v)
	if err != nil {
		return SubmoduleSet{}, err
	}
	return SubmoduleSet{Names: names}, nil
}

func (s *SchemaV2) validateSearch() error {
	if _, err := s.section("search"); err != nil {
		return err
	}
	search := Search{Ranking: map[string]int{}, Ignore: []string{}}

	err := s.catch("search.ranking", func() error {
		v, err := s.pop("search.ranking", document.NewMap(), false)
		if err != nil {
			return err
		}
		ranking, err := validation.Dict(v)
		if err != nil {
			return err
		}
		for _, pattern := range ranking.Keys() {
			normalized, err := validation.PathPattern(pattern)
			if err != nil {
				return err
			}
			raw, _ := ranking.Get(pattern)
			rank, err := validation.Choice(raw, searchRanks)
			if err != nil {
				return err
			}
			search.Ranking[normalized] = rank
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.catch("search.ignore", func() error {
		def := make([]any, len(DefaultSearchIgnore))
		for i, p := range DefaultSearchIgnore {
			def[i] = p
		}
		v, err := s.pop("search.ignore", def, false)
		if err != nil {
			return err
		}
		patterns, err := validation.List(v)
		if err != nil {
			return err
		}
		for _, pattern := range patterns {
			normalized, err := validation.PathPattern(pattern)
			if err != nil {
				return err
			}
			search.Ignore = append(search.Ignore, normalized)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.spec.Search = search
	return nil
}

// validateKeys reports the first key no stage consumed.
func (s *SchemaV2) validateKeys() error {
	if _, err := s.pop("version", nil, false); err != nil {
		return err
	}
	if leftover := s.doc.FirstRemaining(); leftover != nil {
		key := leftover.String()
		return s.fail(key, fmt.Sprintf("Invalid configuration option: %s. Make sure the key name is correct.", key), CodeInvalidKey)
	}
	return nil
}
