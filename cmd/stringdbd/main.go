package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fgcz/string-gsea/cmd/stringdbd/handlers"
	"github.com/fgcz/string-gsea/cmd/stringdbd/registry"
	"github.com/fgcz/string-gsea/pkg/utils/echoutil"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	settlePolls := flag.Int(
		"settle-polls", 2,
		"status polls a job answers \"running\" before settling",
	)
	flag.Parse()

	e := echo.New()

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	reg := registry.New(*settlePolls, registry.KnownTaxa)

	jobid := "jobid"
	e.POST("/api/json/valuesranks_enrichment_submit", handlers.SubmitHandler(reg))
	e.GET("/api/json/valuesranks_enrichment_status", handlers.StatusHandler(reg))
	e.GET("/api/json/get_api_key", handlers.APIKeyHandler())
	e.GET("/api/artifact/:jobid/enrichment.tsv", handlers.TableHandler(reg, jobid))
	e.GET("/api/artifact/:jobid/enrichment.png", handlers.GraphHandler(reg, jobid))
	e.GET("/page/:jobid", handlers.PageHandler(reg, jobid))

	log.Println("registered routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	e.Logger.Fatal(e.Start(":" + strconv.Itoa(*port)))
}
