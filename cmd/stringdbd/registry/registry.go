// Package registry keeps the jobs of the stand-in service in memory.
//
// A job is accepted with its fate already decided: the registry scripts
// what the real service would conclude about the submission, and the
// status endpoint plays it out over a fixed number of polls.
package registry

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/fgcz/string-gsea/pkg/api/gsea"
)

// KnownTaxa are the organisms the stand-in pretends to know.
var KnownTaxa = []int{
	9606,   // human
	10090,  // mouse
	10116,  // rat
	7955,   // zebrafish
	7227,   // fruit fly
	6239,   // nematode
	4932,   // yeast
	3702,   // thale cress
	511145, // E. coli K-12
	9823,   // pig
}

// Job is one accepted submission and its scripted fate.
type Job struct {
	ID      string
	Species int
	FDR     float64

	// Outcome is the terminal status the job settles into.
	Outcome string

	// Settled reports whether the poll countdown has run out.
	Settled bool
}

type entry struct {
	job       Job
	remaining int
}

type Registry struct {
	mu          sync.Mutex
	serial      int
	settlePolls int
	taxa        map[int]bool
	jobs        map[string]*entry
}

// New creates a registry whose jobs answer "running" to settlePolls
// status polls before settling, and which knows the organisms in taxa.
func New(settlePolls int, taxa []int) *Registry {
	if settlePolls < 0 {
		settlePolls = 0
	}
	known := map[int]bool{}
	for _, t := range taxa {
		known[t] = true
	}
	return &Registry{
		settlePolls: settlePolls,
		taxa:        known,
		jobs:        map[string]*entry{},
	}
}

// Accept registers a submission and decides its outcome: no
// identifiers settle as "nothing found", an organism outside the
// allowlist as "unknown organism", everything else succeeds.
func (r *Registry) Accept(species int, fdr float64, identifiers string) Job {
	outcome := gsea.StatusSuccess
	if strings.TrimSpace(identifiers) == "" {
		outcome = gsea.StatusNothingFound
	} else if !r.taxa[species] {
		outcome = gsea.StatusUnknownOrganism
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.serial += 1
	job := Job{
		ID:      fmt.Sprintf("job-%d", r.serial),
		Species: species,
		FDR:     fdr,
		Outcome: outcome,
		Settled: r.settlePolls <= 0,
	}
	r.jobs[job.ID] = &entry{job: job, remaining: r.settlePolls}
	return job
}

// Poll counts one status poll against the job and returns its state.
// A settled job stays settled.
func (r *Registry) Poll(jobID string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	if 0 < e.remaining {
		e.remaining -= 1
	} else {
		e.job.Settled = true
	}
	return e.job, true
}

// Get returns the job without counting a poll.
func (r *Registry) Get(jobID string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// Table renders the enrichment table of a job. The first line names the
// job, so downloads can be told apart.
func Table(job Job) []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "# %s\tspecies %d\tfdr %g\n", job.ID, job.Species, job.FDR)
	buf.WriteString("category\tterm\tdescription\tgenes mapped\tenrichment score\tdirection\tfalse discovery rate\n")
	buf.WriteString("GO Process\tGO:0006915\tapoptotic process\t42\t1.73\ttop\t0.0021\n")
	buf.WriteString("KEGG\thsa04210\tApoptosis\t17\t1.21\ttop\t0.0187\n")
	return buf.Bytes()
}

// Graph renders a png tinted by a hash of the job id.
func Graph(job Job) ([]byte, error) {
	h := fnv.New32a()
	h.Write([]byte(job.ID))
	sum := h.Sum32()
	tint := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, tint)
		}
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
