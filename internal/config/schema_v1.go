package config

import (
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/buildconfig/internal/config/document"
	"git.home.luguber.info/inful/buildconfig/internal/config/validation"
	"git.home.luguber.info/inful/buildconfig/internal/foundation"
)

const (
	v1PythonInvalid            = `"python" section must be a mapping.`
	v1ExtraRequirementsInvalid = `"python.extra_requirements" section must be a list.`
)

// v1Python is the python section before install steps are derived.
type v1Python struct {
	version           string
	useSystemPackages bool
	installWithPip    bool
	installWithSetup  bool
	extraRequirements []string
}

// SchemaV1 validates version 1 documents. Only build, python, formats,
// conda and requirements_file are read from the document; everything else
// comes from the project defaults. Unknown keys are ignored.
type SchemaV1 struct {
	*schemaBase

	pipeline *pipeline

	image          memo[string]
	pythonVersions memo[[]string]
	python         memo[v1Python]
	formats        []string
	conda          *Conda
	requirements   foundation.Option[string]
}

func newSchemaV1(base *schemaBase) *SchemaV1 {
	s := &SchemaV1{
		schemaBase:     base,
		image:          memo[string]{name: "build.image"},
		pythonVersions: memo[[]string]{name: "python versions"},
		python:         memo[v1Python]{name: "python"},
	}
	s.pipeline = newPipeline(
		stage{name: "build", run: s.validateBuild},
		stage{name: "python", needs: []string{"build"}, run: s.validatePython},
		stage{name: "formats", run: s.validateFormats},
		stage{name: "conda", run: s.validateConda},
		stage{name: "requirements_file", run: s.validateRequirementsFile},
	)
	return s
}

func (s *SchemaV1) Version() int     { return 1 }
func (s *SchemaV1) Stages() []string { return s.pipeline.names() }

// Validate runs the stages and assembles the Specification.
func (s *SchemaV1) Validate() (*Specification, error) {
	if err := s.begin(1); err != nil {
		return nil, err
	}
	if err := s.pipeline.run(s.logger, s.recorder); err != nil {
		return nil, err
	}
	return s.assemble(), nil
}

// validateBuild resolves the image. The python versions are taken from the
// image the user chose, before the per-project image override is applied.
func (s *SchemaV1) validateBuild() error {
	cat := s.catalog()
	image := s.env.StartImage()

	if raw, ok := s.get("build"); ok {
		build, isMap := raw.(*document.Map)
		if !isMap {
			return s.catch("build", func() error {
				_, err := validation.Dict(raw)
				return err
			})
		}
		if build.Has("image") {
			err := s.catch("build", func() error {
				v, err := s.pop("build.image", nil, false)
				if err != nil {
					return err
				}
				image, err = validation.Choice(scalarString(v), cat.ValidImageNames())
				return err
			})
			if err != nil {
				return err
			}
		}
		image = cat.QualifyImage(image)
	}

	if settings, ok := cat.ImageSettings(image); ok {
		s.pythonVersions.assign(settings.Python.SupportedVersions)
	} else if len(s.env.PythonSupportedVersions) > 0 {
		s.pythonVersions.assign(s.env.PythonSupportedVersions)
	} else {
		s.pythonVersions.assign(cat.PythonVersions())
	}

	if override := s.env.Defaults.BuildImage; override != "" {
		image = override
	}
	s.image.assign(image)
	return nil
}

func (s *SchemaV1) validatePython() error {
	defaults := s.env.Defaults
	py := v1Python{
		version:           defaults.PythonVersion,
		useSystemPackages: defaults.UseSystemPackages,
		installWithSetup:  defaults.InstallProject,
		extraRequirements: []string{},
	}
	if py.version == "" {
		py.version = "2"
	}

	raw, ok := s.get("python")
	if !ok {
		s.python.assign(py)
		return nil
	}
	section, isMap := raw.(*document.Map)
	if !isMap {
		return s.fail("python", v1PythonInvalid, CodePythonInvalid)
	}

	if section.Has("use_system_site_packages") {
		if err := s.popBool("python.use_system_site_packages", &py.useSystemPackages); err != nil {
			return err
		}
	}
	if section.Has("pip_install") {
		if err := s.popBool("python.pip_install", &py.installWithPip); err != nil {
			return err
		}
	}
	if section.Has("extra_requirements") {
		v, err := s.pop("python.extra_requirements", nil, false)
		if err != nil {
			return err
		}
		extras, isList := v.([]any)
		if !isList {
			return s.fail("python.extra_requirements", v1ExtraRequirementsInvalid, CodePythonInvalid)
		}
		// Extra requirements only make sense for pip installs and are
		// dropped without an error otherwise.
		if py.installWithPip {
			for _, extra := range extras {
				err := s.catch("python.extra_requirements", func() error {
					name, err := validation.String(extra)
					if err != nil {
						return err
					}
					py.extraRequirements = append(py.extraRequirements, name)
					return nil
				})
				if err != nil {
					return err
				}
			}
		}
	}
	if section.Has("setup_py_install") {
		if err := s.popBool("python.setup_py_install", &py.installWithSetup); err != nil {
			return err
		}
	}
	if section.Has("version") {
		err := s.catch("python.version", func() error {
			v, err := s.pop("python.version", nil, false)
			if err != nil {
				return err
			}
			py.version, err = validation.Choice(scalarString(v), s.pythonVersions.get())
			return err
		})
		if err != nil {
			return err
		}
	}
	s.python.assign(py)
	return nil
}

func (s *SchemaV1) popBool(key string, dst *bool) error {
	return s.catch(key, func() error {
		v, err := s.pop(key, nil, false)
		if err != nil {
			return err
		}
		*dst, err = validation.Bool(v)
		return err
	})
}

func (s *SchemaV1) validateFormats() error {
	raw, _ := s.get("formats")
	if raw == nil {
		s.formats = slices.Clone(nonNil(s.env.Defaults.Formats))
		return nil
	}
	s.formats = []string{}
	if list, ok := raw.([]any); ok && len(list) == 1 && list[0] == "none" {
		_, _ = s.pop("formats", nil, false)
		return nil
	}
	return s.catch("format", func() error {
		v, err := s.pop("formats", nil, false)
		if err != nil {
			return err
		}
		list, err := validation.List(v)
		if err != nil {
			return err
		}
		for _, item := range list {
			format, err := validation.Choice(item, ValidFormats)
			if err != nil {
				return err
			}
			s.formats = append(s.formats, format)
		}
		return nil
	})
}

func (s *SchemaV1) validateConda() error {
	raw, ok := s.get("conda")
	if !ok {
		return nil
	}
	err := s.catch("conda", func() error {
		_, err := validation.Dict(raw)
		return err
	})
	if err != nil {
		return err
	}
	return s.catch("conda.file", func() error {
		if !s.has("conda.file") {
			return validation.ValueNotFound("file")
		}
		v, err := s.pop("conda.file", nil, true)
		if err != nil {
			return err
		}
		env, err := validation.Path(v, s.basePath)
		if err != nil {
			return err
		}
		s.conda = &Conda{Environment: env}
		return nil
	})
}

func (s *SchemaV1) validateRequirementsFile() error {
	var value any = s.env.Defaults.RequirementsFile
	if s.has("requirements_file") {
		value, _ = s.pop("requirements_file", nil, false)
	}
	if !truthy(value) {
		s.requirements = foundation.None[string]()
		return nil
	}
	return s.catch("requirements_file", func() error {
		path, err := validation.Path(value, s.basePath)
		if err != nil {
			return err
		}
		s.requirements = foundation.Some(path)
		return nil
	})
}

// assemble derives the sections version 1 documents cannot configure.
func (s *SchemaV1) assemble() *Specification {
	py := s.python.get()
	spec := s.newSpecification(1)
	spec.Formats = s.formats
	spec.Conda = s.conda
	spec.Build = &BuildImage{Image: s.image.get(), AptPackages: []string{}}

	// A requirements step is always present; without a path the builder
	// searches for a requirements file itself.
	install := []PythonInstallStep{&PythonInstallRequirements{Requirements: s.requirements}}
	switch {
	case py.installWithPip:
		install = append(install, &PythonInstall{Path: ".", Method: MethodPip, ExtraRequirements: py.extraRequirements})
	case py.installWithSetup:
		install = append(install, &PythonInstall{Path: ".", Method: MethodSetuptools, ExtraRequirements: []string{}})
	}
	spec.Python = Python{
		Version:               foundation.Some(py.version),
		Install:               install,
		UseSystemSitePackages: py.useSystemPackages,
	}

	spec.DocType = DocType(s.env.DocType())
	sphinxConfig := foundation.None[string]()
	if cfg := s.env.Defaults.SphinxConfiguration; cfg != "" {
		sphinxConfig = foundation.Some(filepath.Clean(cfg))
	}
	spec.Sphinx = &Sphinx{Builder: spec.DocType, Configuration: sphinxConfig}
	spec.Mkdocs = &Mkdocs{Configuration: foundation.None[string]()}
	spec.Submodules = Submodules{Include: AllSubmodules, Exclude: SubmoduleSet{Names: []string{}}, Recursive: true}
	spec.Search = Search{Ranking: map[string]int{}, Ignore: []string{}}
	return spec
}
