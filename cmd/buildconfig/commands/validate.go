package commands

import (
	"context"

	"git.home.luguber.info/inful/buildconfig/internal/config"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct {
	Project    string `arg:"" optional:"" help:"Project checkout directory" default:"." type:"existingdir"`
	ConfigFile string `name:"config-file" short:"f" help:"Configuration file relative to the project (default: discover)"`
	Format     string `short:"o" help:"Output format" enum:"yaml,json" default:"yaml"`
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	env, err := root.environment(g.Logger)
	if err != nil {
		return err
	}
	loader := config.NewLoader(config.WithLogger(g.Logger))
	spec, err := loader.Load(context.Background(), v.Project, env, v.ConfigFile)
	if err != nil {
		return config.Classify(err)
	}
	return writeDocument(g.Out, spec.AsMap(), v.Format)
}
