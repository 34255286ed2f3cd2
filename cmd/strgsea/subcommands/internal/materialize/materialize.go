// Package materialize is the shared tail of run, resume and fetch:
// turn a polled session into files on disk, and optionally one zip.
package materialize

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fgcz/string-gsea/pkg/report"
)

// Files writes the link indexes, the result tables and the result
// graphics of every successful result under the result root of rep.
//
// Returns the result root.
func Files(ctx context.Context, logger *log.Logger, rep *report.Writer) (string, error) {
	links, err := rep.WriteLinks()
	if err != nil {
		return "", err
	}
	logger.Printf("wrote links for %d groups", len(links))

	if _, err := rep.WriteTables(ctx); err != nil {
		return "", err
	}
	root, err := rep.WriteGraphics(ctx)
	if err != nil {
		return "", err
	}
	logger.Printf("wrote result tables and graphics under %s", root)
	return root, nil
}

// Archive zips the result root of rep into "<root>.zip", drawing a
// byte progress bar on progressOut while the archive grows.
//
// Returns the path of the written zip.
func Archive(ctx context.Context, rep *report.Writer, progressOut io.Writer) (string, error) {
	prog, err := rep.GoArchive(ctx)
	if err != nil {
		return "", err
	}

	bar := pb.New64(prog.EstimatedTotalSize())
	bar.Set(pb.Bytes, true)
	bar.SetWriter(progressOut)
	if err := bar.Err(); err != nil {
		return "", err
	}

	bar.Start()
	for {
		select {
		case <-time.NewTimer(1 * time.Second).C:
			bar.SetTotal(prog.EstimatedTotalSize())
			bar.SetCurrent(prog.ProgressedSize())
			bar.Set("prefix", ellipsis(prog.ProgressingFile(), 60)+":")
			continue
		case <-prog.Done():
			bar.SetTotal(prog.EstimatedTotalSize())
			bar.SetCurrent(prog.ProgressedSize())
			bar.Set("prefix", "")
		}
		break
	}
	bar.Finish()

	if err := prog.Error(); err != nil {
		return "", err
	}
	dest, ok := prog.Result()
	if !ok {
		return "", errors.New("archiving was not completed")
	}
	return dest, nil
}

func ellipsis(s string, length int) string {
	if len(s) <= length {
		return s
	}
	l := len(s)
	return "[...]" + s[l-length+5:]
}
