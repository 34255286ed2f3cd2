// Package handlers implements the http surface of the stand-in: the
// three STRING json endpoints plus the artifact routes their answers
// point at.
package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/fgcz/string-gsea/cmd/stringdbd/registry"
	"github.com/fgcz/string-gsea/pkg/api/gsea"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type errorMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorEnvelope wraps a message the way the service reports failures:
// a one-element array with status "error".
func errorEnvelope(message string) []errorMessage {
	return []errorMessage{{Status: gsea.StatusError, Message: message}}
}

// selfURL builds an absolute url pointing back at this server.
func selfURL(c echo.Context, parts ...string) string {
	return c.Scheme() + "://" + c.Request().Host + "/" + path.Join(parts...)
}

// SubmitHandler accepts a ranked list for enrichment.
//
// Malformed submissions are answered with HTTP 200 and an error
// envelope, as the service does. A list which can never produce a
// result is still accepted: its fate surfaces at polling time.
func SubmitHandler(reg *registry.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.FormValue("api_key") == "" {
			return c.JSON(http.StatusOK, errorEnvelope("api_key is required"))
		}
		if c.FormValue("caller_identity") == "" {
			return c.JSON(http.StatusOK, errorEnvelope("caller_identity is required"))
		}
		species, err := strconv.Atoi(c.FormValue("species"))
		if err != nil {
			return c.JSON(http.StatusOK, errorEnvelope("species should be an NCBI taxon id"))
		}
		fdr, err := strconv.ParseFloat(c.FormValue("ge_fdr"), 64)
		if err != nil {
			return c.JSON(http.StatusOK, errorEnvelope("ge_fdr should be a number"))
		}
		if _, err := strconv.Atoi(c.FormValue("ge_enrichment_rank_direction")); err != nil {
			return c.JSON(http.StatusOK, errorEnvelope("ge_enrichment_rank_direction should be -1 or 1"))
		}

		job := reg.Accept(species, fdr, c.FormValue("identifiers"))
		c.Logger().Infof("accepted %s (species %d)", job.ID, species)

		return c.JSON(http.StatusOK, []gsea.SubmitAck{
			{JobID: job.ID, Status: "submitted"},
		})
	}
}

// StatusHandler reports the state of a job, counting the poll against
// its settle countdown. Settled successes carry urls pointing back at
// this server.
func StatusHandler(reg *registry.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.QueryParam("job_id")
		job, ok := reg.Poll(jobID)
		if !ok {
			return c.JSON(http.StatusNotFound, errorEnvelope("no such job: "+jobID))
		}

		if !job.Settled {
			return c.JSON(http.StatusOK, []gsea.JobStatus{{Status: "running"}})
		}
		if job.Outcome != gsea.StatusSuccess {
			return c.JSON(http.StatusOK, []gsea.JobStatus{{Status: job.Outcome}})
		}
		return c.JSON(http.StatusOK, []gsea.JobStatus{
			{
				Status:      gsea.StatusSuccess,
				FDR:         gsea.Number(job.FDR),
				PageURL:     selfURL(c, "page", job.ID),
				DownloadURL: selfURL(c, "api", "artifact", job.ID, "enrichment.tsv"),
				GraphURL:    selfURL(c, "api", "artifact", job.ID, "enrichment.png"),
			},
		})
	}
}

// APIKeyHandler issues a fresh key on every call.
func APIKeyHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, []gsea.APIKey{
			{
				Key:  uuid.NewString(),
				Note: "issued by the local stand-in, for development only",
			},
		})
	}
}

// TableHandler serves the enrichment table of a job.
func TableHandler(reg *registry.Registry, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		job, ok := reg.Get(c.Param(paramKey))
		if !ok {
			return c.JSON(http.StatusNotFound, errorEnvelope("no such job: "+c.Param(paramKey)))
		}
		return c.Blob(http.StatusOK, "text/tab-separated-values", registry.Table(job))
	}
}

// GraphHandler serves the enrichment graphic of a job.
func GraphHandler(reg *registry.Registry, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		job, ok := reg.Get(c.Param(paramKey))
		if !ok {
			return c.JSON(http.StatusNotFound, errorEnvelope("no such job: "+c.Param(paramKey)))
		}
		img, err := registry.Graph(job)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "image/png", img)
	}
}

// PageHandler serves the interactive result page of a job. The
// stand-in has nothing interactive to show, so it is a plain summary.
func PageHandler(reg *registry.Registry, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		job, ok := reg.Get(c.Param(paramKey))
		if !ok {
			return c.HTML(http.StatusNotFound, "<html><body>no such job</body></html>")
		}
		return c.HTML(http.StatusOK, fmt.Sprintf(
			"<html><body><h1>Enrichment %s</h1><p>species %d, fdr %g</p></body></html>",
			job.ID, job.Species, job.FDR,
		))
	}
}
