package run

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fgcz/string-gsea/cmd/strgsea/config/profiles"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/common"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/internal/materialize"
	"github.com/fgcz/string-gsea/pkg/batch"
	"github.com/fgcz/string-gsea/pkg/ranks"
	"github.com/fgcz/string-gsea/pkg/report"
	"github.com/fgcz/string-gsea/pkg/session"
	"github.com/fgcz/string-gsea/pkg/species"
	"github.com/fgcz/string-gsea/pkg/stringdb"
	"github.com/google/uuid"
	"github.com/youta-t/flarc"
)

type Flag struct {
	Species      int           `flag:"species" help:"NCBI taxon of the gene identifiers. When omitted, the majority of OX= tags over FASTA members in RANKS_ZIP decides."`
	WorkunitID   string        `flag:"workunit-id" help:"work unit id naming the output tree. Generated when omitted."`
	BasePath     string        `flag:"base-path" help:"directory to put the result tree under"`
	PollInterval time.Duration `flag:"poll-interval" help:"wait between two polls of one job"`
	MaxWait      time.Duration `flag:"max-wait" help:"total waiting per job before giving up"`
}

const ARGS_RANKS_ZIP = "RANKS_ZIP"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"submit rank lists to the enrichment service and collect the results.",
		Flag{
			BasePath:     ".",
			PollInterval: batch.DefaultInterval,
			MaxWait:      batch.DefaultMaxWait,
		},
		flarc.Args{
			{
				Name: ARGS_RANKS_ZIP, Required: true,
				Help: "zip archive holding *.rnk rank lists (and, optionally, FASTA files for species detection).",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Run the whole enrichment batch over RANKS_ZIP: submit every *.rnk member
to the STRING enrichment service, wait until each job settles, download
the outcomes and zip them up.

Each rank list is lines of "identifier<TAB>value". FASTA members of the
archive, when present, decide the species by the majority of their OX=
tags; pass --species to skip that vote.

Everything lands under <base-path>/WU_<workunit-id>_GSEA:

    <group>/links.txt               links to the interactive result pages
    <group>/<name>_results.tsv      enrichment table
    <group>/<name>_results.png      enrichment graphic
    <group>/<name>.rnk              the ranking as submitted
    gsea_session.yml                session document

and the tree is zipped to <base-path>/WU_<workunit-id>_GSEA.zip. The
path of the zip is printed on stdout.

The session document records every issued job. If submitting or polling
is interrupted, pick the batch up where it stopped:

    strgsea resume <base-path>/WU_<workunit-id>_GSEA/gsea_session.yml
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
		zipPath := cl.Args()[ARGS_RANKS_ZIP][0]

		if flags.PollInterval <= 0 {
			return fmt.Errorf("%w: --poll-interval should be longer than 0", flarc.ErrUsage)
		}
		if flags.MaxWait < flags.PollInterval {
			return fmt.Errorf(
				"%w: --max-wait should not be shorter than --poll-interval", flarc.ErrUsage,
			)
		}

		set, err := ranks.FromZip(zipPath)
		if err != nil {
			return fmt.Errorf("failed to read rank lists: %w", err)
		}
		if set.Len() == 0 {
			return fmt.Errorf("%w: no *.rnk member in %s", flarc.ErrUsage, zipPath)
		}
		logger.Printf("loaded %d rank lists from %s", set.Len(), zipPath)

		taxon := flags.Species
		if taxon == 0 {
			t, err := species.FromZip(zipPath)
			if err != nil {
				return fmt.Errorf(
					"failed to determine the species (pass --species to set it): %w", err,
				)
			}
			taxon = t
			logger.Printf("species %d, by majority of FASTA OX= tags", taxon)
		}

		runID := flags.WorkunitID
		if runID == "" {
			runID = uuid.NewString()
			logger.Printf("generated run id: %s", runID)
		}

		sess, err := session.New(runID, taxon, session.Config{
			APIKey:         prof.ApiKey,
			FDR:            prof.FDR,
			RankDirection:  prof.RankDirection,
			CallerIdentity: prof.CallerIdentity,
			CreationDate:   time.Now().Format(session.CreationDateFormat),
		}, flags.BasePath)
		if err != nil {
			return fmt.Errorf("%w (check your profile, or `strgsea init` again)", err)
		}

		// The inputs are materialized before anything is sent, so even
		// a batch failing halfway documents what it asked for.
		if _, err := report.WriteRankFiles(sess, set); err != nil {
			return fmt.Errorf("failed to write rank files: %w", err)
		}

		sessionFile := filepath.Join(sess.ResultRoot(), session.DocumentName)
		runner := batch.New(
			client,
			batch.WithLogger(logger),
			batch.WithInterval(flags.PollInterval),
			batch.WithMaxWait(flags.MaxWait),
		)

		if err := runner.SubmitAll(ctx, sess, set); err != nil {
			if 0 < len(sess.JobKeys()) {
				if serr := sess.Save(sessionFile); serr != nil {
					return errors.Join(err, serr)
				}
				logger.Printf("partially submitted session is saved to %s", sessionFile)
			}
			return err
		}
		if err := sess.Save(sessionFile); err != nil {
			return err
		}
		logger.Printf("session is saved to %s", sessionFile)

		perr := runner.PollAll(ctx, sess)
		// Whatever polling did is kept, settled results included.
		if err := sess.Save(sessionFile); err != nil {
			if perr != nil {
				return errors.Join(perr, err)
			}
			return err
		}
		if perr != nil {
			return fmt.Errorf("%w (later, `strgsea resume %s`)", perr, sessionFile)
		}

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
