package stringdb_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	testutilctx "github.com/fgcz/string-gsea/internal/testutils/context"
	"github.com/fgcz/string-gsea/pkg/api/gsea"
	"github.com/fgcz/string-gsea/pkg/stringdb"
	"github.com/fgcz/string-gsea/pkg/utils/try"
)

func TestSubmit(t *testing.T) {
	t.Run("when the service accepts, it returns the job id", func(t *testing.T) {
		var request *http.Request
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			request = r

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[{"job_id": "bHVjYXMx", "status": "submitted"}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{
			ApiRoot: server.URL, ApiKey: "demo-key", CallerIdentity: "www.fgcz.ch",
		}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		jobID := try.To(testee.Submit(context.Background(), stringdb.SubmitRequest{
			Species:       9606,
			FDR:           0.25,
			RankDirection: -1,
			Ranks:         "P04637\t2.5\nQ00987\t-1.5\n",
		})).OrFatal(t)

		if jobID != "bHVjYXMx" {
			t.Errorf("job id: actual = %s, expected = bHVjYXMx", jobID)
		}

		if request == nil {
			t.Fatal("the service was not called")
		}
		if request.Method != http.MethodPost {
			t.Errorf("method: actual = %s, expected = POST", request.Method)
		}
		if request.URL.Path != "/json/valuesranks_enrichment_submit" {
			t.Errorf("path: actual = %s", request.URL.Path)
		}
		for name, expected := range map[string]string{
			"species":                      "9606",
			"caller_identity":              "www.fgcz.ch",
			"identifiers":                  "P04637\t2.5\nQ00987\t-1.5\n",
			"api_key":                      "demo-key",
			"ge_fdr":                       "0.25",
			"ge_enrichment_rank_direction": "-1",
		} {
			if actual := request.PostForm.Get(name); actual != expected {
				t.Errorf("form %s: actual = %q, expected = %q", name, actual, expected)
			}
		}
	})

	t.Run("when the service rejects in a 200 answer, it returns ErrSubmitRejected", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[{"status": "error", "message": "Unknown or ambiguous identifiers"}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		_, err := testee.Submit(context.Background(), stringdb.SubmitRequest{
			Species: 9606, FDR: 0.25, RankDirection: -1, Ranks: "P04637\t2.5\n",
		})
		if !errors.Is(err, stringdb.ErrSubmitRejected) {
			t.Errorf("expected ErrSubmitRejected, but got %+v", err)
		}
	})

	t.Run("a server responding with error is given", func(t *testing.T) {
		for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
			t.Run(fmt.Sprintf("when server responding with %d, it returns ErrSubmitRejected", status), func(t *testing.T) {
				handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(status)
					w.Write([]byte("something wrong"))
				})
				server := httptest.NewServer(handler)
				defer server.Close()

				profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
				testee := try.To(stringdb.New(&profile)).OrFatal(t)

				_, err := testee.Submit(context.Background(), stringdb.SubmitRequest{
					Species: 9606, FDR: 0.25, RankDirection: -1, Ranks: "P04637\t2.5\n",
				})
				if !errors.Is(err, stringdb.ErrSubmitRejected) {
					t.Errorf("expected ErrSubmitRejected, but got %+v", err)
				}
			})
		}
	})

	t.Run("when the envelope is empty, it returns ErrSubmitRejected", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		_, err := testee.Submit(context.Background(), stringdb.SubmitRequest{
			Species: 9606, FDR: 0.25, RankDirection: -1, Ranks: "P04637\t2.5\n",
		})
		if !errors.Is(err, stringdb.ErrSubmitRejected) {
			t.Errorf("expected ErrSubmitRejected, but got %+v", err)
		}
	})

	t.Run("when the profile has no api key, it rejects without calling out", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.Write([]byte(`[{"job_id": "x"}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		_, err := testee.Submit(context.Background(), stringdb.SubmitRequest{
			Species: 9606, FDR: 0.25, RankDirection: -1, Ranks: "P04637\t2.5\n",
		})
		if !errors.Is(err, stringdb.ErrSubmitRejected) {
			t.Errorf("expected ErrSubmitRejected, but got %+v", err)
		}
		if called {
			t.Errorf("the service should not be called")
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("when the job is settled, it returns that payload", func(t *testing.T) {
		var request *http.Request
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			request = r
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{
				"status": "success",
				"fdr": "0.25",
				"page_url": "https://example.test/page",
				"download_url": "https://example.test/dl.tsv",
				"graph_url": "https://example.test/graph.png"
			}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		actual := try.To(testee.Status(context.Background(), "job-1")).OrFatal(t)

		expected := gsea.JobStatus{
			Status:      gsea.StatusSuccess,
			FDR:         gsea.Number(0.25),
			PageURL:     "https://example.test/page",
			DownloadURL: "https://example.test/dl.tsv",
			GraphURL:    "https://example.test/graph.png",
		}
		if !actual.Equal(expected) {
			t.Errorf("response is not equal (actual, expected): %+v, %+v", actual, expected)
		}

		if request == nil {
			t.Fatal("the service was not called")
		}
		if request.URL.Path != "/json/valuesranks_enrichment_status" {
			t.Errorf("path: actual = %s", request.URL.Path)
		}
		q := request.URL.Query()
		if q.Get("api_key") != "demo-key" || q.Get("job_id") != "job-1" {
			t.Errorf("query: actual = %s", request.URL.RawQuery)
		}
	})

	t.Run("when the answer is not json, it returns ErrUnexpectedResponse", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>burp</html>`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		_, err := testee.Status(context.Background(), "job-1")
		if !errors.Is(err, stringdb.ErrUnexpectedResponse) {
			t.Errorf("expected ErrUnexpectedResponse, but got %+v", err)
		}
	})
}

func TestAwait(t *testing.T) {
	pendingThenSuccess := func(settleAt int64) http.Handler {
		polls := new(int64)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt64(polls, 1)
			w.Header().Set("Content-Type", "application/json")
			if n < settleAt {
				w.Write([]byte(`[{"status": "running"}]`))
				return
			}
			w.Write([]byte(`[{
				"status": "success",
				"fdr": 0.25,
				"page_url": "https://example.test/page",
				"download_url": "https://example.test/dl.tsv",
				"graph_url": "https://example.test/graph.png"
			}]`))
		})
	}

	t.Run("it polls until the job succeeds", func(t *testing.T) {
		ctx, cancel := testutilctx.WithTest(context.Background(), t)
		defer cancel()

		requests := new(int64)
		counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(requests, 1)
			pendingThenSuccess(3).ServeHTTP(w, r)
		})
		server := httptest.NewServer(counted)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		actual := try.To(testee.Await(
			ctx, "job-1", 10*time.Millisecond, time.Second,
		)).OrFatal(t)

		if !actual.Succeeded() {
			t.Errorf("status: actual = %+v", actual)
		}
		if n := atomic.LoadInt64(requests); n != 3 {
			t.Errorf("polls: actual = %d, expected = 3", n)
		}
	})

	t.Run("it stops at once when the job settles in failure", func(t *testing.T) {
		requests := new(int64)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(requests, 1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"status": "nothing found"}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		_, err := testee.Await(
			context.Background(), "job-1", 10*time.Millisecond, time.Second,
		)
		if !errors.Is(err, stringdb.ErrJobFailed) {
			t.Errorf("expected ErrJobFailed, but got %+v", err)
		}

		jobErr := new(stringdb.JobError)
		if !errors.As(err, &jobErr) {
			t.Fatalf("expected a JobError, but got %+v", err)
		}
		if jobErr.JobID != "job-1" || jobErr.Status != gsea.StatusNothingFound {
			t.Errorf("JobError: actual = %+v", jobErr)
		}

		if n := atomic.LoadInt64(requests); n != 1 {
			t.Errorf("polls: actual = %d, expected = 1", n)
		}
	})

	t.Run("it gives up when the waiting budget is spent", func(t *testing.T) {
		ctx, cancel := testutilctx.WithTest(context.Background(), t)
		defer cancel()

		requests := new(int64)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(requests, 1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"status": "running"}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL, ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		_, err := testee.Await(
			ctx, "job-1", 10*time.Millisecond, 30*time.Millisecond,
		)
		if !errors.Is(err, stringdb.ErrPollTimeout) {
			t.Errorf("expected ErrPollTimeout, but got %+v", err)
		}

		// budget of 3 intervals: polls at 0, 10 and 20ms of waiting
		if n := atomic.LoadInt64(requests); n != 3 {
			t.Errorf("polls: actual = %d, expected = 3", n)
		}
	})

	t.Run("it rejects a non-positive interval", func(t *testing.T) {
		profile := stringdb.Profile{ApiRoot: "https://example.test/api", ApiKey: "demo-key"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		if _, err := testee.Await(context.Background(), "job-1", 0, time.Second); err == nil {
			t.Errorf("expected an error, but got nil")
		}
	})
}

func TestFetchAPIKey(t *testing.T) {
	t.Run("it returns the issued key", func(t *testing.T) {
		var request *http.Request
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			request = r
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"api_key": "fresh-key", "note": "valid for a year"}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		actual := try.To(testee.FetchAPIKey(context.Background())).OrFatal(t)

		if actual.Key != "fresh-key" || actual.Note != "valid for a year" {
			t.Errorf("api key: actual = %+v", actual)
		}
		if request == nil || request.URL.Path != "/json/get_api_key" {
			t.Errorf("path: actual = %+v", request.URL.Path)
		}
	})

	t.Run("when the answer has no key, it returns ErrUnexpectedResponse", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"note": "no key today"}]`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: server.URL}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		_, err := testee.FetchAPIKey(context.Background())
		if !errors.Is(err, stringdb.ErrUnexpectedResponse) {
			t.Errorf("expected ErrUnexpectedResponse, but got %+v", err)
		}
	})
}

func TestDownload(t *testing.T) {
	t.Run("it streams the artifact into the writer", func(t *testing.T) {
		content := "term\tdescription\tfdr\nGO:0006915\tapoptotic process\t0.001\n"
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(content))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: "https://example.test/api"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		sink := bytes.NewBuffer(nil)
		try.Done(testee.Download(
			context.Background(), server.URL+"/artifact.tsv", sink,
		)).OrFatal(t)

		if actual := sink.String(); actual != content {
			t.Errorf("content: actual = %q, expected = %q", actual, content)
		}
	})

	t.Run("when the service answers non-2xx, it writes nothing", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGone)
			w.Write([]byte("gone"))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		profile := stringdb.Profile{ApiRoot: "https://example.test/api"}
		testee := try.To(stringdb.New(&profile)).OrFatal(t)

		sink := bytes.NewBuffer(nil)
		err := testee.Download(context.Background(), server.URL+"/artifact.tsv", sink)
		if !errors.Is(err, stringdb.ErrUnexpectedResponse) {
			t.Errorf("expected ErrUnexpectedResponse, but got %+v", err)
		}
		if sink.Len() != 0 {
			t.Errorf("the writer should stay empty, but got %q", sink.String())
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("it rejects a profile without a usable api root", func(t *testing.T) {
		for name, apiRoot := range map[string]string{
			"empty":    "",
			"relative": "version-12-0/api",
		} {
			t.Run("apiRoot is "+name, func(t *testing.T) {
				profile := stringdb.Profile{ApiRoot: apiRoot}
				if _, err := stringdb.New(&profile); !errors.Is(err, stringdb.ErrProfileInvalid) {
					t.Errorf("expected ErrProfileInvalid, but got %+v", err)
				}
			})
		}
	})
}
