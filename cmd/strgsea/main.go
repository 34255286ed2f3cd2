package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/common"
	subfetch "github.com/fgcz/string-gsea/cmd/strgsea/subcommands/fetch"
	subinit "github.com/fgcz/string-gsea/cmd/strgsea/subcommands/initialize"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/logger"
	subresume "github.com/fgcz/string-gsea/cmd/strgsea/subcommands/resume"
	subrun "github.com/fgcz/string-gsea/cmd/strgsea/subcommands/run"
	subver "github.com/fgcz/string-gsea/cmd/strgsea/subcommands/version"
	"github.com/fgcz/string-gsea/pkg/utils/try"
	"github.com/joho/godotenv"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	// STRGSEA_API_ROOT and STRGSEA_API_KEY can come from a .env file
	// in the working directory. Not having one is fine.
	godotenv.Load()

	cf := try.To(common.Flags()).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	run := try.To(subrun.New()).OrFatal(logger)
	resume := try.To(subresume.New()).OrFatal(logger)
	fetch := try.To(subfetch.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	strgsea := try.To(
		flarc.NewCommandGroup(
			"STRING-db GSEA batch commandline interface",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("run", run),
			flarc.WithSubcommand("resume", resume),
			flarc.WithSubcommand("fetch", fetch),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, strgsea, flarc.WithHelp(true)))
}
