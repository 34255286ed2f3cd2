// Package batch drives a whole session against the enrichment service:
// submit every rank list, then poll every job to its terminal state.
//
// Progress is written into the session as it is made, entry by entry,
// so an aborted run leaves a session a later run can pick up.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fgcz/string-gsea/pkg/ranks"
	"github.com/fgcz/string-gsea/pkg/session"
	"github.com/fgcz/string-gsea/pkg/stringdb"
)

var ErrNothingToPoll = errors.New("the session has no jobs to poll")

const (
	DefaultInterval = 10 * time.Second
	DefaultMaxWait  = 1 * time.Hour
)

type Runner struct {
	client   stringdb.Client
	logger   *log.Logger
	interval time.Duration
	maxWait  time.Duration
}

type Option func(*Runner) *Runner

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) *Runner {
		r.logger = l
		return r
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Runner) *Runner {
		r.interval = d
		return r
	}
}

func WithMaxWait(d time.Duration) Option {
	return func(r *Runner) *Runner {
		r.maxWait = d
		return r
	}
}

func New(client stringdb.Client, options ...Option) *Runner {
	r := &Runner{
		client:   client,
		logger:   log.New(io.Discard, "", log.LstdFlags),
		interval: DefaultInterval,
		maxWait:  DefaultMaxWait,
	}
	for _, opt := range options {
		r = opt(r)
	}
	return r
}

// SubmitAll submits every rank list in set and records the issued job
// ids into sess, in set order.
//
// Keys which already have a job in sess are skipped, so SubmitAll can
// be repeated over a partially submitted session. The first failed
// submission aborts the remainder; lists submitted before it stay
// recorded.
func (r *Runner) SubmitAll(ctx context.Context, sess *session.Session, set *ranks.Set) error {
	for key, list := range set.Iter() {
		if jobID, ok := sess.Job(key); ok {
			r.logger.Printf("skip %s: already submitted as job %s", key, jobID)
			continue
		}

		r.logger.Printf("submitting %s (%d identifiers)", key, list.Len())
		jobID, err := r.client.Submit(ctx, stringdb.SubmitRequest{
			Species:       sess.Species,
			FDR:           sess.Config.FDR,
			RankDirection: sess.Config.RankDirection,
			Ranks:         list.TSV(),
		})
		if err != nil {
			return fmt.Errorf("submit %s: %w", key, err)
		}

		if err := sess.PutJob(key, jobID); err != nil {
			return err
		}
		r.logger.Printf("submitted %s as job %s", key, jobID)
	}
	return nil
}

// PollAll awaits every job in sess and records terminal outcomes, in
// submission order.
//
// Keys which already have a result are skipped. A job settling in
// failure is recorded before PollAll aborts, so a later run does not
// poll it again; a timeout records nothing and the job can be polled
// anew. Polling an empty session is a usage error, ErrNothingToPoll.
func (r *Runner) PollAll(ctx context.Context, sess *session.Session) error {
	if len(sess.JobKeys()) == 0 {
		return ErrNothingToPoll
	}

	for key, jobID := range sess.Jobs() {
		if _, ok := sess.Result(key); ok {
			r.logger.Printf("skip %s: result is already recorded", key)
			continue
		}

		r.logger.Printf("awaiting job %s for %s", jobID, key)
		status, err := r.client.Await(ctx, jobID, r.interval, r.maxWait)
		if err != nil {
			jobErr := new(stringdb.JobError)
			if errors.As(err, &jobErr) {
				failed := session.Result{Status: session.Status(jobErr.Status)}
				if perr := sess.PutResult(key, failed); perr != nil {
					return errors.Join(err, perr)
				}
			}
			return fmt.Errorf("job %s for %s: %w", jobID, key, err)
		}

		if err := sess.PutResult(key, session.FromJobStatus(status)); err != nil {
			return err
		}
		r.logger.Printf("job %s for %s settled: %s", jobID, key, status.Status)
	}
	return nil
}
