package stringdb

import (
	"context"
	"fmt"
	"time"

	"github.com/fgcz/string-gsea/pkg/api/gsea"
	"github.com/fgcz/string-gsea/pkg/loop"
)

// polling is the Await loop state. elapsed counts completed sleeps, so
// the budget check matches wall time already spent waiting, not polls.
type polling struct {
	elapsed time.Duration
	status  gsea.JobStatus
}

func (c *client) Await(
	ctx context.Context, jobID string, interval, maxWait time.Duration,
) (gsea.JobStatus, error) {
	if interval <= 0 {
		return gsea.JobStatus{}, fmt.Errorf("poll interval should be positive: %v", interval)
	}

	final, err := loop.Start(
		ctx, polling{},
		func(ctx context.Context, p polling) (polling, loop.Next) {
			status, err := c.Status(ctx, jobID)
			if err != nil {
				return p, loop.Break(err)
			}
			p.status = status

			if status.Succeeded() {
				return p, loop.Break(nil)
			}
			if status.Unrecoverable() {
				return p, loop.Break(&JobError{JobID: jobID, Status: status.Status})
			}

			if maxWait <= p.elapsed+interval {
				return p, loop.Break(fmt.Errorf(
					"%w: job %s is not settled after %v",
					ErrPollTimeout, jobID, p.elapsed+interval,
				))
			}
			p.elapsed += interval
			return p, loop.Continue(interval)
		},
	)
	if err != nil {
		return gsea.JobStatus{}, err
	}
	return final.status, nil
}
