// Package stringdb talks to the STRING enrichment api.
//
// Every json endpoint answers with a one-element array. The envelope
// helpers in responses.go hide that convention from the operations.
package stringdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fgcz/string-gsea/pkg/api/gsea"
	"github.com/fgcz/string-gsea/pkg/utils"
)

var (
	// ErrSubmitRejected covers every way a submission can fail: the
	// transport, a non-2xx answer, or a status "error" envelope.
	ErrSubmitRejected = errors.New("submission is rejected")

	// ErrPollTimeout is returned by Await when a job does not settle
	// within its waiting budget.
	ErrPollTimeout = errors.New("polling timed out")

	// ErrJobFailed is the unwrap target of JobError.
	ErrJobFailed = errors.New("job failed")
)

// JobError reports a job which settled in a failure state. Polling it
// again cannot change the outcome.
type JobError struct {
	JobID  string
	Status string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Status)
}

func (e *JobError) Unwrap() error {
	return ErrJobFailed
}

// SubmitRequest is one ranked gene list with its analysis parameters.
type SubmitRequest struct {
	// NCBI taxon of the genes in Ranks
	Species int

	// significance cutoff passed to the enrichment
	FDR float64

	// -1 ranks from most negative, +1 from most positive
	RankDirection int

	// gene ranking, lines of "<identifier>\t<value>"
	Ranks string
}

type Client interface {
	// Submit sends one ranked list for enrichment.
	//
	// Args
	//
	// - context.Context
	//
	// - SubmitRequest: the list and its parameters
	//
	// Returns
	//
	// - string: id of the accepted job
	//
	// - error: ErrSubmitRejected if the service did not take the job
	Submit(ctx context.Context, req SubmitRequest) (string, error)

	// Status asks the service for the current state of a job, once.
	Status(ctx context.Context, jobID string) (gsea.JobStatus, error)

	// Await polls a job at a fixed interval until it settles.
	//
	// Returns the success payload, a JobError (unwrapping to
	// ErrJobFailed) when the job settles in a failure state, or
	// ErrPollTimeout when accumulated waiting reaches maxWait.
	Await(ctx context.Context, jobID string, interval, maxWait time.Duration) (gsea.JobStatus, error)

	// FetchAPIKey asks the service to issue a new api key.
	FetchAPIKey(ctx context.Context) (gsea.APIKey, error)

	// Download streams the artifact at a result url into w.
	//
	// Nothing is written to w unless the service answered 2xx.
	Download(ctx context.Context, url string, w io.Writer) error
}

type client struct {
	httpclient *http.Client
	api        string
	apiKey     string
	caller     string
}

// create a new client for Profile
//
// # Args
//
// - *Profile
//
// # Return
//
// - Client: created client
//
// - error: If given profile is invalid, ErrProfileInvalid is returned.
func New(prof *Profile) (Client, error) {
	if err := prof.Verify(); err != nil {
		return nil, err
	}

	caller := prof.CallerIdentity
	if caller == "" {
		caller = DefaultCallerIdentity
	}

	return &client{
		httpclient: new(http.Client),
		api:        strings.TrimSuffix(prof.ApiRoot, "/"),
		apiKey:     prof.ApiKey,
		caller:     caller,
	}, nil
}

// build URL with path
func (c *client) apipath(path ...string) string {
	path = utils.Map(path, func(p string) string {
		return strings.TrimPrefix(strings.TrimSuffix(p, "/"), "/")
	})

	return strings.Join(append([]string{c.api}, path...), "/")
}

func (c *client) Submit(ctx context.Context, sreq SubmitRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: profile has no api key", ErrSubmitRejected)
	}

	form := url.Values{}
	form.Set("species", strconv.Itoa(sreq.Species))
	form.Set("caller_identity", c.caller)
	form.Set("identifiers", sreq.Ranks)
	form.Set("api_key", c.apiKey)
	form.Set("ge_fdr", strconv.FormatFloat(sreq.FDR, 'g', -1, 64))
	form.Set("ge_enrichment_rank_direction", strconv.Itoa(sreq.RankDirection))

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.apipath("json", "valuesranks_enrichment_submit"),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSubmitRejected, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSubmitRejected, err)
	}
	defer resp.Body.Close()

	ack, err := unmarshalEnvelope[gsea.SubmitAck](resp)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSubmitRejected, err)
	}

	// the service answers 200 with a status "error" envelope for
	// rejected lists, so acceptance hinges on the payload.
	if ack.Rejected() {
		return "", fmt.Errorf("%w: %s", ErrSubmitRejected, ack.Message)
	}
	if ack.JobID == "" {
		return "", fmt.Errorf("%w: the service named no job id", ErrSubmitRejected)
	}
	return ack.JobID, nil
}

func (c *client) Status(ctx context.Context, jobID string) (gsea.JobStatus, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		c.apipath("json", "valuesranks_enrichment_status"), nil,
	)
	if err != nil {
		return gsea.JobStatus{}, err
	}

	q := req.URL.Query()
	q.Add("api_key", c.apiKey)
	q.Add("job_id", jobID)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return gsea.JobStatus{}, err
	}
	defer resp.Body.Close()

	status, err := unmarshalEnvelope[gsea.JobStatus](resp)
	if err != nil {
		return gsea.JobStatus{}, fmt.Errorf("status of job %s: %w", jobID, err)
	}
	return status, nil
}

func (c *client) FetchAPIKey(ctx context.Context) (gsea.APIKey, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("json", "get_api_key"), nil,
	)
	if err != nil {
		return gsea.APIKey{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return gsea.APIKey{}, err
	}
	defer resp.Body.Close()

	key, err := unmarshalEnvelope[gsea.APIKey](resp)
	if err != nil {
		return gsea.APIKey{}, err
	}
	if key.Key == "" {
		return gsea.APIKey{}, fmt.Errorf("%w: no api key in the answer", ErrUnexpectedResponse)
	}
	return key, nil
}

func (c *client) Download(ctx context.Context, rawurl string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := rejectNon2xx(resp); err != nil {
		return fmt.Errorf("download %s: %w", rawurl, err)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", rawurl, err)
	}
	return nil
}
