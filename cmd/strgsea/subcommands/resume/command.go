package resume

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fgcz/string-gsea/cmd/strgsea/config/profiles"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/common"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/internal/materialize"
	"github.com/fgcz/string-gsea/pkg/batch"
	"github.com/fgcz/string-gsea/pkg/report"
	"github.com/fgcz/string-gsea/pkg/session"
	"github.com/fgcz/string-gsea/pkg/stringdb"
	"github.com/youta-t/flarc"
)

type Flag struct {
	PollInterval time.Duration `flag:"poll-interval" help:"wait between two polls of one job"`
	MaxWait      time.Duration `flag:"max-wait" help:"total waiting per job before giving up"`
}

const ARGS_SESSION = "SESSION"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"pick up an interrupted enrichment batch from its session document.",
		Flag{
			PollInterval: batch.DefaultInterval,
			MaxWait:      batch.DefaultMaxWait,
		},
		flarc.Args{
			{
				Name: ARGS_SESSION, Required: true,
				Help: "gsea_session.yml of an earlier run.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Poll the jobs of a saved session until each settles, then download the
outcomes and zip them up, like "{{ .Command }} run" would have.

Jobs which already have a recorded outcome are not polled again, so
this command can be repeated safely. The session document is updated
in place after polling, and the path of the result zip is printed on
stdout.

Example
-------

	{{ .Command }} resume ./WU_301251_GSEA/gsea_session.yml
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

		if flags.PollInterval <= 0 {
			return fmt.Errorf("%w: --poll-interval should be longer than 0", flarc.ErrUsage)
		}
		if flags.MaxWait < flags.PollInterval {
			return fmt.Errorf(
				"%w: --max-wait should not be shorter than --poll-interval", flarc.ErrUsage,
			)
		}

		sess, err := session.Load(sessionFile)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", sessionFile, err)
		}
		logger.Printf(
			"restored run %s: %d jobs, %d settled",
			sess.RunID, len(sess.JobKeys()), len(sess.ResultKeys()),
		)

		runner := batch.New(
			client,
			batch.WithLogger(logger),
			batch.WithInterval(flags.PollInterval),
			batch.WithMaxWait(flags.MaxWait),
		)

		perr := runner.PollAll(ctx, sess)
		if errors.Is(perr, batch.ErrNothingToPoll) {
			// nothing was polled, so there is nothing to save either
			return errors.Join(flarc.ErrUsage, perr)
		}
		if err := sess.Save(sessionFile); err != nil {
			if perr != nil {
				return errors.Join(perr, err)
			}
			return err
		}
		if perr != nil {
			return fmt.Errorf("%w (later, `strgsea resume %s`)", perr, sessionFile)
		}
		logger.Printf("session is saved to %s", sessionFile)

		rep, err := report.New(sess, client, report.WithLogger(logger))
		if err != nil {
			return err
		}
		if _, err := materialize.Files(ctx, logger, rep); err != nil {
			return err
		}
		zipped, err := materialize.Archive(ctx, rep, cl.Stderr())
		if err != nil {
			return err
		}
		logger.Printf("results are zipped to %s", zipped)

		fmt.Fprintln(cl.Stdout(), zipped)
		return nil
	}
}
