// Package session models one enrichment run: which rank lists were
// submitted, under which jobs, and what came back.
//
// A Session is the single durable artifact of a run. Everything needed
// to resume or to materialize results is reconstructed from it.
package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fgcz/string-gsea/pkg/api/gsea"
	"github.com/fgcz/string-gsea/pkg/ranks"
	"github.com/fgcz/string-gsea/pkg/utils/maps"
)

var (
	ErrInvalidSession  = errors.New("session is invalid")
	ErrInvalidResult   = errors.New("result is invalid")
	ErrDuplicateJob    = errors.New("job is already recorded")
	ErrDuplicateResult = errors.New("result is already recorded")
	ErrNoSuchJob       = errors.New("no job is recorded for key")
)

// CreationDateFormat is the timestamp layout used in Config.CreationDate.
const CreationDateFormat = "2006-01-02 15:04:05"

// DocumentName is the conventional file name of a saved session,
// placed in the result root of its run.
const DocumentName = "gsea_session.yml"

// Config is the part of a session fixed at creation time.
type Config struct {
	APIKey         string
	FDR            float64
	RankDirection  int
	CallerIdentity string
	CreationDate   string
}

// Verify checks the config is usable for submission.
func (c Config) Verify() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key is empty", ErrInvalidSession)
	}
	if c.CallerIdentity == "" {
		return fmt.Errorf("%w: caller identity is empty", ErrInvalidSession)
	}
	if c.FDR <= 0 || 1 <= c.FDR {
		return fmt.Errorf("%w: fdr %v is out of (0, 1)", ErrInvalidSession, c.FDR)
	}
	if c.RankDirection != -1 && c.RankDirection != 1 {
		return fmt.Errorf(
			"%w: rank direction %d is neither -1 nor 1", ErrInvalidSession, c.RankDirection,
		)
	}
	return nil
}

func (c Config) Equal(o Config) bool {
	return c == o
}

// Status is the terminal state of a job as the service reported it.
type Status string

const (
	Success         Status = gsea.StatusSuccess
	NothingFound    Status = gsea.StatusNothingFound
	UnknownOrganism Status = gsea.StatusUnknownOrganism
)

func (s Status) Succeeded() bool {
	return string(s) == gsea.StatusSuccess
}

func (s Status) Unrecoverable() bool {
	switch string(s) {
	case gsea.StatusNothingFound, gsea.StatusUnknownOrganism:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Succeeded() || s.Unrecoverable()
}

// Result is the terminal outcome of one job.
//
// The URL fields and FDR carry values only when Status is Success.
type Result struct {
	Status      Status
	FDR         float64
	PageURL     string
	DownloadURL string
	GraphURL    string
}

// Verify checks the result is coherent: the status is terminal, and a
// successful result names all its artifacts.
func (r Result) Verify() error {
	if !r.Status.Terminal() {
		return fmt.Errorf("%w: status %q is not terminal", ErrInvalidResult, r.Status)
	}
	if r.Status.Succeeded() {
		if r.PageURL == "" || r.DownloadURL == "" || r.GraphURL == "" {
			return fmt.Errorf("%w: a success result is missing artifact urls", ErrInvalidResult)
		}
	}
	return nil
}

func (r Result) Equal(o Result) bool {
	return r == o
}

// FromJobStatus converts a terminal job answer into the Result recorded
// in the session.
func FromJobStatus(j gsea.JobStatus) Result {
	r := Result{Status: Status(j.Status)}
	if j.Succeeded() {
		r.FDR = float64(j.FDR)
		r.PageURL = j.PageURL
		r.DownloadURL = j.DownloadURL
		r.GraphURL = j.GraphURL
	}
	return r
}

// Session aggregates the whole state of one run.
//
// The jobs and results mappings grow monotonically, in insertion order,
// and never overwrite. A result can only be recorded for a key which
// already has a job.
type Session struct {
	RunID    string
	Species  int
	Config   Config
	BasePath string

	jobs    maps.Map[ranks.Key, string]
	results maps.Map[ranks.Key, Result]
}

func New(runID string, species int, config Config, basePath string) (*Session, error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is empty", ErrInvalidSession)
	}
	if species <= 0 {
		return nil, fmt.Errorf("%w: species %d is not a taxon id", ErrInvalidSession, species)
	}
	if basePath == "" {
		return nil, fmt.Errorf("%w: base path is empty", ErrInvalidSession)
	}
	if err := config.Verify(); err != nil {
		return nil, err
	}

	return &Session{
		RunID:    runID,
		Species:  species,
		Config:   config,
		BasePath: basePath,
		jobs:     maps.NewOrderedMap[ranks.Key, string](),
		results:  maps.NewOrderedMap[ranks.Key, Result](),
	}, nil
}

// ResultRoot is the directory every artifact of this run lands in,
// "WU_<run id>_GSEA" under the base path.
func (s *Session) ResultRoot() string {
	return filepath.Join(s.BasePath, "WU_"+s.RunID+"_GSEA")
}

// PutJob records that key was submitted as jobID.
func (s *Session) PutJob(key ranks.Key, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("%w: empty job id for %s", ErrInvalidSession, key)
	}
	if _, ok := s.jobs.Get(key); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, key)
	}
	s.jobs.Set(key, jobID)
	return nil
}

func (s *Session) Job(key ranks.Key) (string, bool) {
	return s.jobs.Get(key)
}

// JobKeys returns submitted keys in submission order.
func (s *Session) JobKeys() []ranks.Key {
	return s.jobs.Keys()
}

// Jobs iterates (key, job id) in submission order, usable with range-over-func.
func (s *Session) Jobs() func(yield func(k ranks.Key, jobID string) bool) {
	return s.jobs.Iter()
}

// PutResult records the terminal outcome of key's job.
//
// The key must have a job already. Results are never overwritten.
func (s *Session) PutResult(key ranks.Key, r Result) error {
	if _, ok := s.jobs.Get(key); !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchJob, key)
	}
	if _, ok := s.results.Get(key); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateResult, key)
	}
	if err := r.Verify(); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	s.results.Set(key, r)
	return nil
}

func (s *Session) Result(key ranks.Key) (Result, bool) {
	return s.results.Get(key)
}

// ResultKeys returns keys with recorded results, in recording order.
func (s *Session) ResultKeys() []ranks.Key {
	return s.results.Keys()
}

// Results iterates (key, result) in recording order, usable with range-over-func.
func (s *Session) Results() func(yield func(k ranks.Key, r Result) bool) {
	return s.results.Iter()
}

func (s *Session) Equal(o *Session) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.RunID == o.RunID &&
		s.Species == o.Species &&
		s.Config.Equal(o.Config) &&
		s.BasePath == o.BasePath &&
		maps.EqWith(s.jobs, o.jobs, func(a, b string) bool { return a == b }) &&
		maps.EqWith(s.results, o.results, func(a, b Result) bool { return a.Equal(b) })
}
