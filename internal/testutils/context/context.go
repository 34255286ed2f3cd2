package context

import (
	"context"
	"testing"
	"time"
)

// margin kept before the test deadline so cleanup still gets to run.
const cleanupMargin = time.Second

// WithTest bounds ctx by the deadline of t, less the cleanup margin.
func WithTest(ctx context.Context, t *testing.T) (context.Context, func()) {
	deadline, ok := t.Deadline()
	if !ok {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline.Add(-cleanupMargin))
}
