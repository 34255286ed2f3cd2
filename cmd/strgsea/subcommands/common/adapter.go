package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/fgcz/string-gsea/cmd/strgsea/config/profiles"
	"github.com/fgcz/string-gsea/pkg/stringdb"
	"github.com/youta-t/flarc"
)

// Environment variables overriding the loaded profile. They can also
// come from a .env file (loaded in main).
const (
	EnvApiRoot = "STRGSEA_API_ROOT"
	EnvApiKey  = "STRGSEA_API_KEY"
)

type TaskWithCommonFlag[T any] func(
	ctx context.Context,
	logger *log.Logger,
	commonFlag CommonFlags,
	cl flarc.Commandline[T],
	params []any,
) error

func NewTaskWithCommonFlag[T any](task TaskWithCommonFlag[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		logger := log.New(cl.Stderr(), "", log.LstdFlags)
		logger.SetPrefix(fmt.Sprintf("[%s] ", cl.Fullname()))

		return task(
			ctx,
			logger,
			commonFlag,
			cl,
			newpos,
		)
	}
}

type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	prof profiles.GseaProfile,
	client stringdb.Client,
	cl flarc.Commandline[T],
	params []any,
) error

func NewTask[T any](task Task[T]) flarc.Task[T] {

	return NewTaskWithCommonFlag(func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag CommonFlags,
		cl flarc.Commandline[T],
		params []any,
	) error {
		store, err := profiles.LoadProfileStore(commonFlag.ProfileStore)
		if err != nil {
			if errors.Is(err, profiles.ErrProfileStoreNotFound) {
				return fmt.Errorf(
					"%w. Please try `strgsea init` first",
					err,
				)
			}
			return fmt.Errorf(
				"%w: failed to load the profile store (%s)",
				err, commonFlag.ProfileStore,
			)
		}
		prof, ok := store[commonFlag.Profile]
		if !ok {
			return fmt.Errorf(
				"profile '%s' not found in the profile store (%s)",
				commonFlag.Profile, commonFlag.ProfileStore,
			)
		}

		p := *prof
		if root := os.Getenv(EnvApiRoot); root != "" {
			p.ApiRoot = root
		}
		if key := os.Getenv(EnvApiKey); key != "" {
			p.ApiKey = key
		}

		client, err := stringdb.New(&p.Profile)
		if err != nil {
			return fmt.Errorf(
				"%w: failed to create a client. Your profile (%s in %s) can be broken.\n\nRemove it and try `strgsea init` again",
				err, commonFlag.Profile, commonFlag.ProfileStore,
			)
		}
		return task(ctx, logger, p, client, cl, params)
	})
}
