// Command convert runs a single granule through the conversion path
// without Kafka: load, normalize timestamps, project the point cloud,
// and write one artifact per requested format. It uses the same domain
// and pipeline packages as the service, so its output matches what the
// service would publish.
//
// Usage:
//
//	go run ./cmd/convert \
//	  -granule data/granules/20170517_flight.json \
//	  -out out \
//	  -formats czml,chunks \
//	  -czml-mode path
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/fieldtrace/granule-etl-service/internal/adapter/chunkstore"
	"github.com/fieldtrace/granule-etl-service/internal/adapter/czml"
	"github.com/fieldtrace/granule-etl-service/internal/adapter/granulefile"
	"github.com/fieldtrace/granule-etl-service/internal/domain"
	"github.com/fieldtrace/granule-etl-service/internal/observability"
	"github.com/fieldtrace/granule-etl-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	granule := flag.String("granule", "", "path to the granule document to convert")
	out := flag.String("out", "out", "output directory for artifacts")
	formats := flag.String("formats", "czml", "comma-separated output formats (czml, chunks)")
	czmlMode := flag.String("czml-mode", "path", "czml rendering mode (path or points)")
	chunkSize := flag.Int("chunk-size", chunkstore.DefaultChunkSize, "points per chunk in chunk stores")
	flag.Parse()

	if *granule == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -granule")
	}

	czmlWriter, err := czml.NewWriter(*czmlMode)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	logger := observability.NewLogger("info", "text")

	converter := pipeline.NewConverter(pipeline.ConverterConfig{
		Loader:         granulefile.Load,
		Writers:        []pipeline.DocumentWriter{czmlWriter, chunkstore.NewWriter(*chunkSize)},
		DefaultFormats: splitFormats(*formats),
		OutputDir:      *out,
	}, pipeline.NewNamer(clock), clock, logger, observability.NewMetrics())

	job, err := json.Marshal(domain.ConvertJob{GranulePath: *granule})
	if err != nil {
		return err
	}

	result, err := converter.Process(context.Background(), domain.RawJob{Value: job})
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(encoded))

	if result.Status == domain.StatusRejected {
		return fmt.Errorf("granule rejected: %s", result.Error)
	}
	return nil
}

func splitFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
