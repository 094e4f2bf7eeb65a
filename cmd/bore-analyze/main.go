package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/RyanBlaney/sonido-bore/geometry"
	"github.com/RyanBlaney/sonido-bore/logging"
	"github.com/RyanBlaney/sonido-bore/resonance"
	"github.com/RyanBlaney/sonido-bore/resonance/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bore-analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	didgmo := fs.String("didgmo", "", "Geometry as DIDGMO:<length_mm>,<d1>,...,<dn>")
	file := fs.String("file", "", "Geometry file (DIDGMO, CSV or JSON)")
	method := fs.String("method", "auto", "Analysis method: auto, tmm or simplified")
	reference := fs.Float64("reference", 0, "A4 reference pitch in Hz (overrides the config)")
	configPath := fs.String("config", "", "Analysis config JSON file, applied over the defaults")
	spectrumPath := fs.String("spectrum", "", "Write the impedance spectrum as CSV to this path")
	reflection := fs.Bool("reflection", false, "Include the reflection function in the output")
	timeout := fs.Duration("timeout", 30*time.Second, "Analysis timeout")
	verbose := fs.Bool("v", false, "Debug logging")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := logging.NewWriterLogger(stderr, stderr, false)
	level, known := logging.ParseLevel(*logLevel)
	if !known {
		fmt.Fprintf(stderr, "unknown log level %q\n", *logLevel)
		return 2
	}
	if *verbose {
		level = logging.DebugLevel
	}
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	mode, err := resonance.ParseMode(*method)
	if err != nil {
		logger.Error(err, "Invalid -method")
		return 2
	}

	text, err := geometryText(*didgmo, *file)
	if err != nil {
		logger.Error(err, "No geometry")
		return 2
	}

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		cfg, err = config.LoadJSON(*configPath)
		if err != nil {
			logger.Error(err, "Error loading config", logging.Fields{"path": *configPath})
			return 1
		}
	}
	if *reference > 0 {
		cfg.ReferencePitch = *reference
	}
	if *reflection {
		cfg.ReflectionFunction = true
	}

	parsed, err := geometry.ParseGeometry(text)
	if err != nil {
		logger.Error(err, "Error parsing geometry")
		return 1
	}
	points, err := parsed.Points()
	if err != nil {
		logger.Error(err, "Invalid geometry")
		return 1
	}

	analyzer, err := resonance.NewAnalyzer(cfg)
	if err != nil {
		logger.Error(err, "Invalid config")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logging.ContextWithFields(ctx, logging.Fields{"format": string(parsed.Format), "points": len(points)})

	result, err := analyzer.Run(ctx, mode, points)
	if err != nil {
		logger.Error(err, "Analysis failed", logging.Fields{"code": resonance.ErrorCode(err)})
		return 1
	}

	logger.Info("Analysis complete", logging.Fields{
		"method":      string(result.Method),
		"fundamental": strconv.FormatFloat(result.Fundamental(), 'f', 2, 64),
		"resonances":  len(result.Results),
	})

	if *spectrumPath != "" {
		if err := writeSpectrum(*spectrumPath, result); err != nil {
			logger.Error(err, "Error writing spectrum", logging.Fields{"path": *spectrumPath})
			return 1
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error(err, "Error encoding result")
		return 1
	}

	return 0
}

func geometryText(didgmo, file string) (string, error) {
	switch {
	case didgmo != "" && file != "":
		return "", errors.New("use either -didgmo or -file")
	case didgmo != "":
		return didgmo, nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", errors.New("one of -didgmo or -file is required")
	}
}

func writeSpectrum(path string, result *resonance.AnalysisResult) error {
	details := result.Metadata.TransferMatrix
	if details == nil {
		return fmt.Errorf("%s results carry no impedance spectrum", result.Method)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"frequency_hz", "magnitude"}); err != nil {
		f.Close()
		return err
	}
	for _, p := range details.ImpedanceSpectrum {
		row := []string{
			strconv.FormatFloat(p.Frequency, 'f', -1, 64),
			strconv.FormatFloat(p.Magnitude, 'g', 8, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
