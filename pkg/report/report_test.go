package report_test

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fgcz/string-gsea/pkg/ranks"
	"github.com/fgcz/string-gsea/pkg/report"
	"github.com/fgcz/string-gsea/pkg/session"
	"github.com/fgcz/string-gsea/pkg/stringdb/mock"
	"github.com/fgcz/string-gsea/pkg/utils/archive"
	"github.com/fgcz/string-gsea/pkg/utils/try"
)

var (
	keyA = ranks.Key{Group: "pep_1", Name: "TreatVsCtrl"}
	keyB = ranks.Key{Group: "pep_1", Name: "KO-WT"}
	keyC = ranks.Key{Group: "pep_2", Name: "TreatVsCtrl"}
)

func newSession(t *testing.T, basePath string) *session.Session {
	t.Helper()
	return try.To(session.New(
		"301251", 9606,
		session.Config{
			APIKey:         "demo-key",
			FDR:            0.25,
			RankDirection:  -1,
			CallerIdentity: "www.fgcz.ch",
			CreationDate:   "2024-01-02 03:04:05",
		},
		basePath,
	)).OrFatal(t)
}

func successResult(stem string) session.Result {
	return session.Result{
		Status:      session.Success,
		FDR:         0.23,
		PageURL:     "https://example.test/" + stem + "/page",
		DownloadURL: "https://example.test/" + stem + "/table.tsv",
		GraphURL:    "https://example.test/" + stem + "/graph.png",
	}
}

func record(t *testing.T, sess *session.Session, key ranks.Key, r session.Result) {
	t.Helper()
	try.Done(sess.PutJob(key, "job-"+key.Name)).OrFatal(t)
	try.Done(sess.PutResult(key, r)).OrFatal(t)
}

func newSet(t *testing.T, keys ...ranks.Key) *ranks.Set {
	t.Helper()
	set := ranks.NewSet()
	for i, k := range keys {
		list := try.To(ranks.ParseTSV(
			fmt.Sprintf("P0463%d\t2.5\nQ0098%d\t-1.5\n", i, i),
		)).OrFatal(t)
		try.Done(set.Add(k, list)).OrFatal(t)
	}
	return set
}

// echoDownload makes downloaded content predictable per url.
func echoDownload(_ context.Context, url string, w io.Writer) error {
	_, err := fmt.Fprintf(w, "artifact of %s", url)
	return err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	return string(try.To(os.ReadFile(path)).OrFatal(t))
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	members := map[string]string{}
	err := archive.ZipWalk(path, func(member *zip.File) error {
		r, err := member.Open()
		if err != nil {
			return err
		}
		defer r.Close()

		content, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		members[member.Name] = string(content)
		return nil
	})
	try.Done(err).OrFatal(t)
	return members
}

func TestNew(t *testing.T) {
	t.Run("a session without results has nothing to materialize", func(t *testing.T) {
		sess := newSession(t, t.TempDir())
		try.Done(sess.PutJob(keyA, "job-a")).OrFatal(t)

		if _, err := report.New(sess, mock.New(t)); !errors.Is(err, report.ErrNoResults) {
			t.Errorf("expected ErrNoResults, but got %+v", err)
		}
	})

	t.Run("the result root is named after the run", func(t *testing.T) {
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))

		testee := try.To(report.New(sess, mock.New(t))).OrFatal(t)
		if root := testee.ResultRoot(); root != filepath.Join(base, "WU_301251_GSEA") {
			t.Errorf("result root: actual = %s", root)
		}
	})
}

func TestWriteLinks(t *testing.T) {
	t.Run("it writes one links.txt per group, lines in recording order", func(t *testing.T) {
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))
		record(t, sess, keyB, successResult("b"))
		record(t, sess, keyC, successResult("c"))

		testee := try.To(report.New(sess, mock.New(t))).OrFatal(t)
		written := try.To(testee.WriteLinks()).OrFatal(t)

		if len(written) != 2 {
			t.Fatalf("links files: actual = %+v", written)
		}

		expectedPep1 := "TreatVsCtrl: https://example.test/a/page\n" +
			"KO-WT: https://example.test/b/page\n"
		if actual := readFile(t, written["pep_1"]); actual != expectedPep1 {
			t.Errorf("links for pep_1: actual = %q, expected = %q", actual, expectedPep1)
		}

		expectedPep2 := "TreatVsCtrl: https://example.test/c/page\n"
		if actual := readFile(t, written["pep_2"]); actual != expectedPep2 {
			t.Errorf("links for pep_2: actual = %q, expected = %q", actual, expectedPep2)
		}
	})

	t.Run("a group with failed results only gets no links.txt", func(t *testing.T) {
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))
		record(t, sess, keyC, session.Result{Status: session.NothingFound})

		testee := try.To(report.New(sess, mock.New(t))).OrFatal(t)
		written := try.To(testee.WriteLinks()).OrFatal(t)

		if _, ok := written["pep_2"]; ok {
			t.Errorf("links files: actual = %+v", written)
		}
		pep2 := filepath.Join(testee.ResultRoot(), "pep_2", "links.txt")
		if _, err := os.Stat(pep2); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s should not exist: %+v", pep2, err)
		}
	})
}

func TestWriteTables(t *testing.T) {
	t.Run("it downloads the table of every successful result", func(t *testing.T) {
		ctx := context.Background()
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))
		record(t, sess, keyC, successResult("c"))

		client := mock.New(t)
		client.Impl.Download = echoDownload
		testee := try.To(report.New(sess, client)).OrFatal(t)
		root := try.To(testee.WriteTables(ctx)).OrFatal(t)

		if root != testee.ResultRoot() {
			t.Errorf("root: actual = %s, expected = %s", root, testee.ResultRoot())
		}

		tableA := filepath.Join(root, "pep_1", "TreatVsCtrl_results.tsv")
		if actual := readFile(t, tableA); actual != "artifact of https://example.test/a/table.tsv" {
			t.Errorf("table for %s: actual = %q", keyA, actual)
		}
		tableC := filepath.Join(root, "pep_2", "TreatVsCtrl_results.tsv")
		if actual := readFile(t, tableC); actual != "artifact of https://example.test/c/table.tsv" {
			t.Errorf("table for %s: actual = %q", keyC, actual)
		}

		expectedCalls := []string{
			"https://example.test/a/table.tsv",
			"https://example.test/c/table.tsv",
		}
		if len(client.Calls.Download) != len(expectedCalls) {
			t.Fatalf("downloads: actual = %+v", client.Calls.Download)
		}
		for i, url := range expectedCalls {
			if client.Calls.Download[i] != url {
				t.Errorf("download #%d: actual = %s, expected = %s", i+1, client.Calls.Download[i], url)
			}
		}
	})

	t.Run("results which did not succeed are skipped", func(t *testing.T) {
		ctx := context.Background()
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))
		record(t, sess, keyC, session.Result{Status: session.UnknownOrganism})

		client := mock.New(t)
		client.Impl.Download = echoDownload
		testee := try.To(report.New(sess, client)).OrFatal(t)
		root := try.To(testee.WriteTables(ctx)).OrFatal(t)

		if len(client.Calls.Download) != 1 {
			t.Errorf("downloads: actual = %+v", client.Calls.Download)
		}
		tableC := filepath.Join(root, "pep_2", "TreatVsCtrl_results.tsv")
		if _, err := os.Stat(tableC); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s should not exist: %+v", tableC, err)
		}
	})

	t.Run("a failed download aborts, naming the key, and leaves no partial file", func(t *testing.T) {
		ctx := context.Background()
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))
		record(t, sess, keyC, successResult("c"))

		expectedErr := errors.New("fake download error")
		client := mock.New(t)
		client.Impl.Download = func(_ context.Context, url string, w io.Writer) error {
			if len(client.Calls.Download) == 2 {
				io.WriteString(w, "partial")
				return expectedErr
			}
			_, err := fmt.Fprintf(w, "artifact of %s", url)
			return err
		}

		testee := try.To(report.New(sess, client)).OrFatal(t)
		_, err := testee.WriteTables(ctx)
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected the download error, but got %+v", err)
		}
		if !strings.Contains(err.Error(), keyC.String()) {
			t.Errorf("the error should name the key %s: %+v", keyC, err)
		}

		tableA := filepath.Join(testee.ResultRoot(), "pep_1", "TreatVsCtrl_results.tsv")
		if _, err := os.Stat(tableA); err != nil {
			t.Errorf("the table downloaded before the failure should stay: %+v", err)
		}
		tableC := filepath.Join(testee.ResultRoot(), "pep_2", "TreatVsCtrl_results.tsv")
		if _, err := os.Stat(tableC); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s should be removed: %+v", tableC, err)
		}
	})
}

func TestWriteGraphics(t *testing.T) {
	t.Run("it downloads the graphic of every successful result", func(t *testing.T) {
		ctx := context.Background()
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))

		client := mock.New(t)
		client.Impl.Download = echoDownload
		testee := try.To(report.New(sess, client)).OrFatal(t)
		root := try.To(testee.WriteGraphics(ctx)).OrFatal(t)

		graphA := filepath.Join(root, "pep_1", "TreatVsCtrl_results.png")
		if actual := readFile(t, graphA); actual != "artifact of https://example.test/a/graph.png" {
			t.Errorf("graphic for %s: actual = %q", keyA, actual)
		}
	})
}

func TestWriteRankFiles(t *testing.T) {
	t.Run("it writes every list of a session which has no results yet", func(t *testing.T) {
		base := t.TempDir()
		sess := newSession(t, base)
		set := newSet(t, keyA, keyB)

		root := try.To(report.WriteRankFiles(sess, set)).OrFatal(t)

		for _, key := range set.Keys() {
			list, _ := set.Get(key)
			dest := filepath.Join(root, key.Group, key.Name+".rnk")
			if actual := readFile(t, dest); actual != list.TSV() {
				t.Errorf("rank file for %s: actual = %q, expected = %q", key, actual, list.TSV())
			}
		}
	})
}

func TestArchive(t *testing.T) {
	t.Run("a run with mixed outcomes ships successes plus every rank list", func(t *testing.T) {
		ctx := context.Background()
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))
		record(t, sess, keyB, session.Result{Status: session.NothingFound})
		set := newSet(t, keyA, keyB)

		client := mock.New(t)
		client.Impl.Download = echoDownload
		testee := try.To(report.New(sess, client)).OrFatal(t)

		try.To(report.WriteRankFiles(sess, set)).OrFatal(t)
		try.To(testee.WriteLinks()).OrFatal(t)
		try.To(testee.WriteTables(ctx)).OrFatal(t)
		try.To(testee.WriteGraphics(ctx)).OrFatal(t)

		dest := try.To(testee.Archive(ctx)).OrFatal(t)
		if dest != filepath.Join(base, "WU_301251_GSEA.zip") {
			t.Errorf("zip: actual = %s", dest)
		}

		listA, _ := set.Get(keyA)
		listB, _ := set.Get(keyB)
		expected := map[string]string{
			"pep_1/links.txt":               "TreatVsCtrl: https://example.test/a/page\n",
			"pep_1/TreatVsCtrl_results.tsv": "artifact of https://example.test/a/table.tsv",
			"pep_1/TreatVsCtrl_results.png": "artifact of https://example.test/a/graph.png",
			"pep_1/TreatVsCtrl.rnk":         listA.TSV(),
			"pep_1/KO-WT.rnk":               listB.TSV(),
		}

		members := readZip(t, dest)
		if len(members) != len(expected) {
			t.Errorf("members: actual = %+v", members)
		}
		for name, content := range expected {
			if members[name] != content {
				t.Errorf("member %s: actual = %q, expected = %q", name, members[name], content)
			}
		}
	})

	t.Run("archiving without a result tree fails and leaves no zip", func(t *testing.T) {
		ctx := context.Background()
		base := t.TempDir()
		sess := newSession(t, base)
		record(t, sess, keyA, successResult("a"))

		testee := try.To(report.New(sess, mock.New(t))).OrFatal(t)
		if _, err := testee.Archive(ctx); err == nil {
			t.Fatal("Archive did not cause error")
		}

		dest := filepath.Join(base, "WU_301251_GSEA.zip")
		if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("the partial zip should be removed: %+v", err)
		}
	})
}
