package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildconfig/cmd/buildconfig/commands"
	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
	"git.home.luguber.info/inful/buildconfig/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("buildconfig"),
		kong.Description("Resolve and validate documentation build configuration files."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := ctx.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
