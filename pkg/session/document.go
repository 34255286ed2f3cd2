package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hectane/go-acl"
	"gopkg.in/yaml.v3"

	"github.com/fgcz/string-gsea/pkg/ranks"
	"github.com/fgcz/string-gsea/pkg/utils/yamler"
)

var ErrMalformedDocument = errors.New("session document is malformed")

// Marshal renders the session as YAML.
//
// Mapping order is significant: jobs and results are written in
// recording order, so Parse(Marshal(s)) reconstructs s exactly.
func (s *Session) Marshal() ([]byte, error) {
	jobs := []yamler.MapEntry{}
	for key, jobID := range s.Jobs() {
		jobs = append(jobs, yamler.Entry(
			yamler.Text(key.Encode()), yamler.Text(jobID),
		))
	}

	results := []yamler.MapEntry{}
	for key, r := range s.Results() {
		fields := []yamler.MapEntry{
			yamler.Entry(yamler.Text("status"), yamler.Text(string(r.Status))),
		}
		if r.Status.Succeeded() {
			fields = append(
				fields,
				yamler.Entry(yamler.Text("fdr"), yamler.Number(r.FDR)),
				yamler.Entry(yamler.Text("page_url"), yamler.Text(r.PageURL)),
				yamler.Entry(yamler.Text("download_url"), yamler.Text(r.DownloadURL)),
				yamler.Entry(yamler.Text("graph_url"), yamler.Text(r.GraphURL)),
			)
		}
		results = append(results, yamler.Entry(
			yamler.Text(key.Encode()), yamler.Map(fields...),
		))
	}

	// run_id and creation_date are quoted so scanners never resolve
	// them as anything but strings.
	doc := yamler.Map(
		yamler.Entry(
			yamler.Text("run_id"),
			yamler.Text(s.RunID, yamler.WithStyle(yaml.DoubleQuotedStyle)),
		),
		yamler.Entry(yamler.Text("species"), yamler.Number(s.Species)),
		yamler.Entry(yamler.Text("config"), yamler.Map(
			yamler.Entry(yamler.Text("api_key"), yamler.Text(s.Config.APIKey)),
			yamler.Entry(yamler.Text("fdr"), yamler.Number(s.Config.FDR)),
			yamler.Entry(yamler.Text("rank_direction"), yamler.Number(s.Config.RankDirection)),
			yamler.Entry(yamler.Text("caller_identity"), yamler.Text(s.Config.CallerIdentity)),
			yamler.Entry(
				yamler.Text("creation_date"),
				yamler.Text(s.Config.CreationDate, yamler.WithStyle(yaml.DoubleQuotedStyle)),
			),
		)),
		yamler.Entry(yamler.Text("base_path"), yamler.Text(s.BasePath)),
		yamler.Entry(yamler.Text("jobs"), yamler.Map(jobs...)),
		yamler.Entry(yamler.Text("results"), yamler.Map(results...)),
	)

	buf := bytes.NewBuffer(nil)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type configDocument struct {
	APIKey         string  `yaml:"api_key"`
	Fdr            float64 `yaml:"fdr"`
	RankDirection  int     `yaml:"rank_direction"`
	CallerIdentity string  `yaml:"caller_identity"`
	CreationDate   string  `yaml:"creation_date"`
}

type resultDocument struct {
	Status      string  `yaml:"status"`
	Fdr         float64 `yaml:"fdr"`
	PageURL     string  `yaml:"page_url"`
	DownloadURL string  `yaml:"download_url"`
	GraphURL    string  `yaml:"graph_url"`
}

type sessionDocument struct {
	RunID    string         `yaml:"run_id"`
	Species  int            `yaml:"species"`
	Config   configDocument `yaml:"config"`
	BasePath string         `yaml:"base_path"`

	// Kept as nodes: entry order carries the submission order.
	Jobs    yaml.Node `yaml:"jobs"`
	Results yaml.Node `yaml:"results"`
}

// Parse reads a YAML session document.
//
// The document passes through the same validation as programmatic
// construction, so a parsed session holds every Session invariant.
func Parse(buf []byte) (*Session, error) {
	doc := sessionDocument{}
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDocument, err)
	}

	sess, err := New(
		doc.RunID, doc.Species,
		Config{
			APIKey:         doc.Config.APIKey,
			FDR:            doc.Config.Fdr,
			RankDirection:  doc.Config.RankDirection,
			CallerIdentity: doc.Config.CallerIdentity,
			CreationDate:   doc.Config.CreationDate,
		},
		doc.BasePath,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDocument, err)
	}

	err = eachEntry(&doc.Jobs, func(key ranks.Key, value *yaml.Node) error {
		jobID := ""
		if err := value.Decode(&jobID); err != nil {
			return err
		}
		return sess.PutJob(key, jobID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: jobs: %s", ErrMalformedDocument, err)
	}

	err = eachEntry(&doc.Results, func(key ranks.Key, value *yaml.Node) error {
		rdoc := resultDocument{}
		if err := value.Decode(&rdoc); err != nil {
			return err
		}
		return sess.PutResult(key, Result{
			Status:      Status(rdoc.Status),
			FDR:         rdoc.Fdr,
			PageURL:     rdoc.PageURL,
			DownloadURL: rdoc.DownloadURL,
			GraphURL:    rdoc.GraphURL,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: results: %s", ErrMalformedDocument, err)
	}

	return sess, nil
}

// eachEntry visits a mapping node in document order, decoding each key
// as a composite rank key. A missing or null node is an empty mapping.
func eachEntry(node *yaml.Node, f func(key ranks.Key, value *yaml.Node) error) error {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return errors.New("not a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, err := ranks.DecodeKey(node.Content[i].Value)
		if err != nil {
			return err
		}
		if err := f(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the session document to path, creating parent directories
// as needed. The document carries the api key, so the file is kept
// readable by its owner only, on Windows too.
func (s *Session) Save(path string) error {
	buf, err := s.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0755)); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(0600))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := acl.Chmod(path, 0600); err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		return err
	}
	return nil
}

// Load reads the session document at path.
func Load(path string) (*Session, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(buf)
}
