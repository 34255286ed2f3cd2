// Package report turns a polled session into files on disk: link
// indexes, downloaded result tables and graphics, the submitted rank
// lists, and finally one zip of the whole tree.
//
// Results which did not succeed contribute no files. That is the
// deliberate counterpart to the strict submit/poll stages: once the
// outcomes are known, materialization salvages everything that can be
// salvaged.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fgcz/string-gsea/pkg/ranks"
	"github.com/fgcz/string-gsea/pkg/session"
	"github.com/fgcz/string-gsea/pkg/utils/archive"
	"github.com/fgcz/string-gsea/pkg/utils/maps"
)

var ErrNoResults = errors.New("the session has no results to write")

// Downloader streams a result artifact. stringdb.Client satisfies it.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) error
}

type Writer struct {
	sess   *session.Session
	dl     Downloader
	logger *log.Logger
}

type Option func(*Writer) *Writer

func WithLogger(l *log.Logger) Option {
	return func(w *Writer) *Writer {
		w.logger = l
		return w
	}
}

// New binds a Writer to a polled session.
//
// A session without any result has nothing to materialize, and getting
// here with one is a phase error in the caller: ErrNoResults.
func New(sess *session.Session, dl Downloader, options ...Option) (*Writer, error) {
	if len(sess.ResultKeys()) == 0 {
		return nil, ErrNoResults
	}

	w := &Writer{
		sess:   sess,
		dl:     dl,
		logger: log.New(io.Discard, "", log.LstdFlags),
	}
	for _, opt := range options {
		w = opt(w)
	}
	return w, nil
}

// ResultRoot is where every artifact of this run lands.
func (w *Writer) ResultRoot() string {
	return w.sess.ResultRoot()
}

func (w *Writer) groupDir(group string) (string, error) {
	dir := filepath.Join(w.ResultRoot(), group)
	if err := os.MkdirAll(dir, os.FileMode(0755)); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteLinks writes one links.txt per group which has successful
// results, listing "<name>: <page url>" lines in recording order.
//
// Returns group -> written file path.
func (w *Writer) WriteLinks() (map[string]string, error) {
	perGroup := maps.NewOrderedMap[string, *strings.Builder]()
	for key, r := range w.sess.Results() {
		if !r.Status.Succeeded() {
			continue
		}
		lines, ok := perGroup.Get(key.Group)
		if !ok {
			lines = &strings.Builder{}
			perGroup.Set(key.Group, lines)
		}
		fmt.Fprintf(lines, "%s: %s\n", key.Name, r.PageURL)
	}

	written := map[string]string{}
	for group, lines := range perGroup.Iter() {
		dir, err := w.groupDir(group)
		if err != nil {
			return nil, err
		}

		path := filepath.Join(dir, "links.txt")
		if err := os.WriteFile(path, []byte(lines.String()), os.FileMode(0644)); err != nil {
			return nil, err
		}
		w.logger.Printf("wrote %s", path)
		written[group] = path
	}
	return written, nil
}

// WriteTables downloads the result table of every successful result to
// <root>/<group>/<name>_results.tsv and returns the root.
func (w *Writer) WriteTables(ctx context.Context) (string, error) {
	return w.downloadAll(ctx, "_results.tsv", func(r session.Result) string {
		return r.DownloadURL
	})
}

// WriteGraphics downloads the rendered graphic of every successful
// result to <root>/<group>/<name>_results.png and returns the root.
func (w *Writer) WriteGraphics(ctx context.Context) (string, error) {
	return w.downloadAll(ctx, "_results.png", func(r session.Result) string {
		return r.GraphURL
	})
}

func (w *Writer) downloadAll(
	ctx context.Context, suffix string, urlOf func(session.Result) string,
) (string, error) {
	for key, r := range w.sess.Results() {
		if !r.Status.Succeeded() {
			continue
		}

		dir, err := w.groupDir(key.Group)
		if err != nil {
			return "", err
		}

		dest := filepath.Join(dir, key.Name+suffix)
		if err := w.fetchTo(ctx, urlOf(r), dest); err != nil {
			return "", fmt.Errorf("%s: %w", key, err)
		}
		w.logger.Printf("wrote %s", dest)
	}
	return w.ResultRoot(), nil
}

// fetchTo downloads url into dest. A failed download leaves no file.
func (w *Writer) fetchTo(ctx context.Context, url, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	if err := w.dl.Download(ctx, url, f); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}

// WriteRankFiles writes the rank lists of a run under its result root,
// as <root>/<group>/<name>.rnk, and returns the root.
//
// The inputs document what was asked, not what succeeded, so this is a
// package function with no Writer behind it: it needs no results and
// runs before anything is submitted.
func WriteRankFiles(sess *session.Session, set *ranks.Set) (string, error) {
	root := sess.ResultRoot()
	for key, list := range set.Iter() {
		dir := filepath.Join(root, key.Group)
		if err := os.MkdirAll(dir, os.FileMode(0755)); err != nil {
			return "", err
		}

		dest := filepath.Join(dir, key.Name+".rnk")
		if err := os.WriteFile(dest, []byte(list.TSV()), os.FileMode(0644)); err != nil {
			return "", fmt.Errorf("%s: %w", key, err)
		}
	}
	return root, nil
}

// Progress monitors a running archiving.
type Progress interface {
	// EstimatedTotalSize returns the total size of files to be archived.
	//
	// This is estimated and not compressed size.
	EstimatedTotalSize() int64

	// ProgressedSize returns the size of archived files.
	//
	// This size is updated during archiving.
	ProgressedSize() int64

	// ProgressingFile returns the file name which is currently being archived.
	ProgressingFile() string

	// Error returns error caused during archiving.
	Error() error

	// Result returns the path of the written zip.
	//
	// # Returns
	//
	// - string: the path of the zip.
	//
	// - bool: true if the zip has been written through.
	Result() (string, bool)

	// Done returns a channel which is closed when archiving is over
	// and the zip is on disk (or removed, if archiving failed).
	Done() <-chan struct{}
}

type archiving struct {
	p        archive.Progress
	e        error
	result   string
	resultOk bool
	done     chan struct{}
}

func (a *archiving) EstimatedTotalSize() int64 {
	return a.p.EstimatedTotalSize()
}

func (a *archiving) ProgressedSize() int64 {
	return a.p.ProgressedSize()
}

func (a *archiving) ProgressingFile() string {
	return a.p.ProgressingFile()
}

func (a *archiving) Error() error {
	if err := a.p.Error(); err != nil {
		return err
	}
	return a.e
}

func (a *archiving) Result() (string, bool) {
	return a.result, a.resultOk
}

func (a *archiving) Done() <-chan struct{} {
	return a.done
}

// GoArchive starts zipping the result root into "<root>.zip" beside it.
//
// The error covers failing to start only. Once started, watch the
// returned monitor; a failed archiving removes the partial zip before
// Done fires.
func (w *Writer) GoArchive(ctx context.Context) (Progress, error) {
	root := w.ResultRoot()
	dest := root + ".zip"
	f, err := os.Create(dest)
	if err != nil {
		return nil, err
	}

	prog := &archiving{
		p:    archive.GoZip(ctx, root, f),
		done: make(chan struct{}),
	}
	go func() {
		defer close(prog.done)

		<-prog.p.Done()
		closeErr := f.Close()
		if prog.p.Error() != nil || closeErr != nil {
			prog.e = closeErr
			os.Remove(dest)
			return
		}
		prog.result = dest
		prog.resultOk = true
	}()
	return prog, nil
}

// Archive is GoArchive run to completion.
func (w *Writer) Archive(ctx context.Context) (string, error) {
	prog, err := w.GoArchive(ctx)
	if err != nil {
		return "", err
	}

	<-prog.Done()
	if err := prog.Error(); err != nil {
		return "", err
	}
	dest, ok := prog.Result()
	if !ok {
		return "", errors.New("archiving was not completed")
	}
	return dest, nil
}
