// Command gengranule writes synthetic granule documents for exercising
// the converter: a reflectivity grid with an aircraft track, attitude
// sinusoids, and a time variable in a chosen encoding. Output is fully
// deterministic so fixtures can be regenerated without churn.
//
// Usage:
//
//	go run ./cmd/gengranule \
//	  -out data/granules \
//	  -encoding hours \
//	  -samples 120 -bins 24 \
//	  -date 20170517 \
//	  -rollover
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldtrace/granule-etl-service/internal/adapter/granulefile"
)

const stepSeconds = 10.0

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for granule documents")
	encoding := flag.String("encoding", "hours", "time encoding: hours, seconds, offset, absolute")
	samples := flag.Int("samples", 120, "along-track sample count")
	bins := flag.Int("bins", 24, "range bin count")
	date := flag.String("date", "20170517", "flight date (YYYYMMDD)")
	rollover := flag.Bool("rollover", false, "start near midnight so the sequence wraps a day boundary")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	day, err := time.Parse("20060102", *date)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}

	doc, err := buildDocument(*encoding, *samples, *bins, day, *rollover)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s_synthetic_%s.json", *date, *encoding)
	path := filepath.Join(*out, name)
	if err := writeJSON(path, doc); err != nil {
		return fmt.Errorf("writing granule document: %w", err)
	}
	log.Printf("wrote %s: %d samples x %d bins, %s encoding", path, *samples, *bins, *encoding)
	return nil
}

func buildDocument(encoding string, samples, bins int, day time.Time, rollover bool) (*granulefile.Document, error) {
	doc := &granulefile.Document{
		Dimensions: map[string]int{"time": samples, "range": bins},
		Attributes: map[string]string{
			"date":     day.Format("20060102"),
			"campaign": "synthetic",
		},
		Variables: map[string]granulefile.Var{},
	}

	timeVar, err := timeVariable(encoding, samples, day, rollover)
	if err != nil {
		return nil, err
	}
	doc.Variables["time"] = timeVar

	track := func(f func(i int) float64) granulefile.Var {
		data := make([]float64, samples)
		for i := range data {
			data[i] = f(i)
		}
		return granulefile.Var{Dims: []string{"time"}, Data: data}
	}

	doc.Variables["lat"] = track(func(i int) float64 { return 40.0 + 0.001*float64(i) })
	doc.Variables["lon"] = track(func(i int) float64 { return -105.0 - 0.001*float64(i) })
	doc.Variables["height"] = track(func(i int) float64 { return 7500 + 50*math.Sin(float64(i)/20) })
	doc.Variables["roll"] = track(func(i int) float64 { return 5 * math.Sin(float64(i) / 15) })
	doc.Variables["pitch"] = track(func(i int) float64 { return 2 * math.Cos(float64(i) / 25) })
	doc.Variables["head"] = track(func(i int) float64 { return math.Mod(float64(i)*0.5, 360) })

	rng := make([]float64, bins)
	for b := range rng {
		rng[b] = 100 * float64(b+1)
	}
	doc.Variables["range"] = granulefile.Var{Dims: []string{"range"}, Data: rng}

	ref := make([]float64, samples*bins)
	for s := 0; s < samples; s++ {
		for b := 0; b < bins; b++ {
			ref[s*bins+b] = 10 + 25*math.Sin(float64(s)/10)*math.Cos(float64(b)/6)
		}
	}
	doc.Variables["ref"] = granulefile.Var{Dims: []string{"time", "range"}, Data: ref}

	return doc, nil
}

// timeVariable builds the time sequence in the requested encoding. With
// rollover enabled the midnight-relative encodings start late enough
// that the sequence wraps the day boundary partway through.
func timeVariable(encoding string, samples int, day time.Time, rollover bool) (granulefile.Var, error) {
	startHour := 12.0
	if rollover {
		startHour = 23.9
	}

	switch encoding {
	case "hours":
		data := make([]float64, samples)
		for i := range data {
			data[i] = math.Mod(startHour+float64(i)*stepSeconds/3600, 24)
		}
		return granulefile.Var{Dims: []string{"time"}, Data: data}, nil

	case "seconds":
		data := make([]float64, samples)
		for i := range data {
			data[i] = math.Mod(startHour*3600+float64(i)*stepSeconds, 86400)
		}
		return granulefile.Var{Dims: []string{"time"}, Data: data}, nil

	case "offset":
		ref := day.Add(time.Duration(startHour * float64(time.Hour)))
		data := make([]float64, samples)
		for i := range data {
			data[i] = float64(i) * stepSeconds
		}
		return granulefile.Var{
			Dims:  []string{"time"},
			Data:  data,
			Attrs: map[string]string{"units": "seconds since " + ref.UTC().Format("2006-01-02 15:04:05")},
		}, nil

	case "absolute":
		start := day.Add(time.Duration(startHour * float64(time.Hour)))
		instants := make([]string, samples)
		for i := range instants {
			instants[i] = start.Add(time.Duration(i) * time.Duration(stepSeconds) * time.Second).UTC().Format(time.RFC3339)
		}
		return granulefile.Var{Dims: []string{"time"}, Instants: instants}, nil

	default:
		return granulefile.Var{}, fmt.Errorf("unknown encoding %q", encoding)
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
