// Package gsea holds the payload types of the STRING-db
// values/ranks enrichment API.
//
// Every endpoint answers a JSON array holding exactly one object.
// The types here are that one object, per endpoint.
package gsea

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Status values with meaning fixed by the service.
//
// The status endpoint may answer other values ("running", "queued", ...)
// while a job is still in flight.
const (
	StatusSuccess         = "success"
	StatusError           = "error"
	StatusNothingFound    = "nothing found"
	StatusUnknownOrganism = "unknown organism"
)

// Number is a float64 which also accepts quoted decimal values.
// The service emits fdr both ways, depending on the endpoint.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(n))
}

// SubmitAck is the answer of valuesranks_enrichment_submit.
//
// On acceptance JobID is set. On rejection the service answers
// Status = "error" with a human-readable Message, HTTP 200 regardless.
type SubmitAck struct {
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s SubmitAck) Rejected() bool {
	return s.Status == StatusError
}

func (s SubmitAck) Equal(o SubmitAck) bool {
	return s.JobID == o.JobID &&
		s.Status == o.Status &&
		s.Message == o.Message
}

// JobStatus is the answer of valuesranks_enrichment_status.
//
// The URL fields and FDR are set only when Status is "success".
type JobStatus struct {
	Status      string `json:"status"`
	FDR         Number `json:"fdr,omitempty"`
	PageURL     string `json:"page_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	GraphURL    string `json:"graph_url,omitempty"`
}

func (j JobStatus) Succeeded() bool {
	return j.Status == StatusSuccess
}

// Unrecoverable reports whether the status names a failure which no
// amount of further polling can change.
func (j JobStatus) Unrecoverable() bool {
	switch j.Status {
	case StatusNothingFound, StatusUnknownOrganism:
		return true
	}
	return false
}

func (j JobStatus) Terminal() bool {
	return j.Succeeded() || j.Unrecoverable()
}

func (j JobStatus) Equal(o JobStatus) bool {
	return j.Status == o.Status &&
		j.FDR == o.FDR &&
		j.PageURL == o.PageURL &&
		j.DownloadURL == o.DownloadURL &&
		j.GraphURL == o.GraphURL
}

// APIKey is the answer of get_api_key.
type APIKey struct {
	Key  string `json:"api_key"`
	Note string `json:"note,omitempty"`
}

func (a APIKey) Equal(o APIKey) bool {
	return a.Key == o.Key && a.Note == o.Note
}
