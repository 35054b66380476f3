// agata analyzes a CGM trace file and prints the metric report as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/glucolab/agata/internal/analysis"
	"github.com/glucolab/agata/internal/loader"
	"github.com/glucolab/agata/internal/log"
	"github.com/glucolab/agata/internal/trace"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	input := flag.String("input", "", "Path to trace file: .csv, .msgpack, or xDrip .sqlite (required)")
	format := flag.String("format", "", "Input format override: csv, msgpack, or sqlite (default: by extension)")
	profile := flag.String("profile", "diabetes", "Glycemic target profile")
	comparePath := flag.String("compare", "", "Second trace file; reports agreement with -input instead of analyzing")
	output := flag.String("output", "", "Write JSON report to this file instead of stdout")
	pretty := flag.Bool("pretty", true, "Indent the JSON output")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agata %s\n", version)
		os.Exit(0)
	}
	if *input == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -input <trace.csv> [-compare <trace.csv>] [-profile diabetes]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	tr, err := loadTrace(*input, *format)
	if err != nil {
		log.Errorf("Failed to load %s: %v", *input, err)
		os.Exit(1)
	}

	var result any
	if *comparePath != "" {
		candidate, err := loadTrace(*comparePath, *format)
		if err != nil {
			log.Errorf("Failed to load %s: %v", *comparePath, err)
			os.Exit(1)
		}
		result = analysis.CompareTraces(tr, candidate)
	} else {
		analyzer, err := analysis.New(*profile)
		if err != nil {
			log.Errorf("Bad profile: %v", err)
			os.Exit(1)
		}
		report, err := analyzer.Analyze(tr)
		if err != nil {
			log.Errorf("Analysis failed: %v", err)
			os.Exit(1)
		}
		result = report
	}

	if err := writeJSON(result, *output, *pretty); err != nil {
		log.Errorf("Failed to write report: %v", err)
		os.Exit(1)
	}
}

func loadTrace(path, format string) (*trace.Trace, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".msgpack", ".mp":
			format = "msgpack"
		case ".sqlite", ".db", ".sqlite3":
			format = "sqlite"
		default:
			format = "csv"
		}
	}

	switch format {
	case "csv":
		return loader.FromCSVFile(path)
	case "msgpack":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return loader.FromMsgpack(f)
	case "sqlite":
		return loader.FromXDrip(path)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeJSON(v any, path string, pretty bool) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
