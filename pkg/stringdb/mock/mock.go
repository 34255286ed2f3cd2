package mock

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fgcz/string-gsea/pkg/api/gsea"
	"github.com/fgcz/string-gsea/pkg/stringdb"
)

type AwaitArgs struct {
	JobID    string
	Interval time.Duration
	MaxWait  time.Duration
}

func New(t *testing.T) *Client {
	return &Client{t: t}
}

type Client struct {
	t    *testing.T
	Impl struct {
		Submit      func(ctx context.Context, req stringdb.SubmitRequest) (string, error)
		Status      func(ctx context.Context, jobID string) (gsea.JobStatus, error)
		Await       func(ctx context.Context, jobID string, interval, maxWait time.Duration) (gsea.JobStatus, error)
		FetchAPIKey func(ctx context.Context) (gsea.APIKey, error)
		Download    func(ctx context.Context, url string, w io.Writer) error
	}
	Calls struct {
		Submit      []stringdb.SubmitRequest
		Status      []string
		Await       []AwaitArgs
		FetchAPIKey int
		Download    []string
	}
}

var _ stringdb.Client = &Client{}

func (m *Client) Submit(ctx context.Context, req stringdb.SubmitRequest) (string, error) {
	m.t.Helper()

	m.Calls.Submit = append(m.Calls.Submit, req)
	if m.Impl.Submit == nil {
		m.t.Fatal("Submit is not ready to be called")
	}
	return m.Impl.Submit(ctx, req)
}

func (m *Client) Status(ctx context.Context, jobID string) (gsea.JobStatus, error) {
	m.t.Helper()

	m.Calls.Status = append(m.Calls.Status, jobID)
	if m.Impl.Status == nil {
		m.t.Fatal("Status is not ready to be called")
	}
	return m.Impl.Status(ctx, jobID)
}

func (m *Client) Await(
	ctx context.Context, jobID string, interval, maxWait time.Duration,
) (gsea.JobStatus, error) {
	m.t.Helper()

	m.Calls.Await = append(m.Calls.Await, AwaitArgs{
		JobID: jobID, Interval: interval, MaxWait: maxWait,
	})
	if m.Impl.Await == nil {
		m.t.Fatal("Await is not ready to be called")
	}
	return m.Impl.Await(ctx, jobID, interval, maxWait)
}

func (m *Client) FetchAPIKey(ctx context.Context) (gsea.APIKey, error) {
	m.t.Helper()

	m.Calls.FetchAPIKey += 1
	if m.Impl.FetchAPIKey == nil {
		m.t.Fatal("FetchAPIKey is not ready to be called")
	}
	return m.Impl.FetchAPIKey(ctx)
}

func (m *Client) Download(ctx context.Context, url string, w io.Writer) error {
	m.t.Helper()

	m.Calls.Download = append(m.Calls.Download, url)
	if m.Impl.Download == nil {
		m.t.Fatal("Download is not ready to be called")
	}
	return m.Impl.Download(ctx, url, w)
}
