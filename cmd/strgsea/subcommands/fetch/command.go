package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fgcz/string-gsea/cmd/strgsea/config/profiles"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/common"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/internal/materialize"
	"github.com/fgcz/string-gsea/pkg/report"
	"github.com/fgcz/string-gsea/pkg/session"
	"github.com/fgcz/string-gsea/pkg/stringdb"
	"github.com/youta-t/flarc"
)

type Flag struct {
	BasePath string `flag:"base-path" help:"materialize under this directory instead of the one recorded in the session"`
}

const ARGS_SESSION = "SESSION"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"materialize the artifacts of a settled session, without polling.",
		Flag{},
		flarc.Args{
			{
				Name: ARGS_SESSION, Required: true,
				Help: "gsea_session.yml of an earlier run.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Download the result tables and graphics of a session again and rewrite
the links files, from the outcomes already recorded in the document.
Nothing is submitted or polled, and no zip is written.

Use it to rebuild a result tree that was deleted or half-downloaded,
possibly somewhere else:

	{{ .Command }} fetch --base-path /srv/results ./gsea_session.yml

The path of the result tree is printed on stdout.
`),
	)
}

func Task() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		prof profiles.GseaProfile,
		client stringdb.Client,
		cl flarc.Commandline[Flag],
		params []any,
	) error {
		flags := cl.Flags()
		sessionFile := cl.Args()[ARGS_SESSION][0]

		sess, err := session.Load(sessionFile)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", sessionFile, err)
		}
		if flags.BasePath != "" {
			sess.BasePath = flags.BasePath
		}
		logger.Printf(
			"restored run %s: %d jobs, %d settled",
			sess.RunID, len(sess.JobKeys()), len(sess.ResultKeys()),
		)

		rep, err := report.New(sess, client, report.WithLogger(logger))
		if err != nil {
			if errors.Is(err, report.ErrNoResults) {
				return fmt.Errorf("%w (poll it first: `strgsea resume %s`)", err, sessionFile)
			}
			return err
		}

		root, err := materialize.Files(ctx, logger, rep)
		if err != nil {
			return err
		}

		fmt.Fprintln(cl.Stdout(), root)
		return nil
	}
}
