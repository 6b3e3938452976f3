package commands

// CatalogCmd implements the 'catalog' command.
type CatalogCmd struct {
	Format string `short:"o" help:"Output format" enum:"yaml,json" default:"yaml"`
}

func (c *CatalogCmd) Run(g *Global, root *CLI) error {
	env, err := root.environment(g.Logger)
	if err != nil {
		return err
	}
	return writeDocument(g.Out, env.Catalog, c.Format)
}
