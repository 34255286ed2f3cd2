package initialize

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fgcz/string-gsea/cmd/strgsea/config/profiles"
	"github.com/fgcz/string-gsea/cmd/strgsea/subcommands/common"
	"github.com/fgcz/string-gsea/pkg/stringdb"
	"github.com/youta-t/flarc"
)

type Flag struct {
	ApiRoot        string  `flag:"api-root" help:"endpoint of the enrichment api"`
	ApiKey         string  `flag:"api-key" help:"api key to use. When omitted, a new one is fetched from the service."`
	CallerIdentity string  `flag:"caller-identity" help:"identity reported to the service on submissions"`
	FDR            float64 `flag:"fdr" help:"false discovery rate threshold applied to enrichments"`
	RankDirection  int     `flag:"rank-direction" help:"-1 ranks from the most negative value, 1 from the most positive"`
	Force          bool    `flag:"force" help:"overwrite the profile if it already exists"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"create a profile for the enrichment service.",
		Flag{
			ApiRoot:        stringdb.DefaultApiRoot,
			CallerIdentity: stringdb.DefaultCallerIdentity,
			FDR:            profiles.DefaultFDR,
			RankDirection:  profiles.DefaultRankDirection,
		},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Task(stringdb.New)),
		flarc.WithDescription(`
Create a profile for the STRING enrichment service and save it into your
profile store.

A profile holds the service endpoint, the api key, the identity reported
with each submission, and the enrichment parameters applied to every run
made through it.

Without --api-key, {{ .Command }} asks the service to issue a new key:

    {{ .Command }}

To keep several profiles side by side, name them with --profile:

    {{ .Command }} --profile local --api-root http://localhost:8080/api

An existing profile is overwritten only with --force.
`),
	)
}

func Task(newClient func(*stringdb.Profile) (stringdb.Client, error)) common.TaskWithCommonFlag[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag common.CommonFlags,
		cl flarc.Commandline[Flag],
		params []any,
	) error {
		flags := cl.Flags()

		newProf := &profiles.GseaProfile{
			Profile: stringdb.Profile{
				ApiRoot:        flags.ApiRoot,
				ApiKey:         flags.ApiKey,
				CallerIdentity: flags.CallerIdentity,
			},
			FDR:           flags.FDR,
			RankDirection: flags.RankDirection,
		}
		if err := newProf.Verify(); err != nil {
			return errors.Join(flarc.ErrUsage, err)
		}

		store, err := profiles.LoadProfileStore(commonFlag.ProfileStore)
		if errors.Is(err, profiles.ErrProfileStoreNotFound) {
			store = profiles.ProfileStore{}
		} else if err != nil {
			return fmt.Errorf(
				"%w: failed to load the profile store (%s)",
				err, commonFlag.ProfileStore,
			)
		}

		name := commonFlag.Profile
		if _, ok := store[name]; ok && !flags.Force {
			return fmt.Errorf(
				"%w: profile '%s' already exists in %s. Pass --force to overwrite it",
				flarc.ErrUsage, name, commonFlag.ProfileStore,
			)
		}

		if newProf.ApiKey == "" {
			client, err := newClient(&newProf.Profile)
			if err != nil {
				return err
			}
			logger.Printf("fetching an api key from %s", newProf.ApiRoot)
			key, err := client.FetchAPIKey(ctx)
			if err != nil {
				return fmt.Errorf(
					"failed to fetch an api key from %s: %w", newProf.ApiRoot, err,
				)
			}
			newProf.ApiKey = key.Key
			logger.Printf("obtained api key: %s", key.Key)
			if key.Note != "" {
				logger.Printf("note: %s", key.Note)
			}
		}

		store[name] = newProf
		if err := store.Save(commonFlag.ProfileStore); err != nil {
			return fmt.Errorf(
				"%w: failed to save the profile store (%s)",
				err, commonFlag.ProfileStore,
			)
		}
		logger.Printf("profile %s is saved to %s", name, commonFlag.ProfileStore)
		return nil
	}
}
