// Command blobmaker builds a multi-material blob from a design file, merges
// the coincident surfaces between materials, and tracks the resulting
// boundaries as named groups and sidesets.
//
//	blobmaker [flags] <design.json|design.yaml|design.zy>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chazu/blobmaker/pkg/config"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	config string
	print  bool
	cfg    config.Config
}

func parseFlags(args []string, stderr io.Writer) (*flags, []string, error) {
	fs := pflag.NewFlagSet("blobmaker", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: blobmaker [flags] <design.json|design.yaml|design.zy>")
		fs.PrintDefaults()
	}

	f := &flags{}
	def := config.Default()
	fs.StringVarP(&f.config, "config", "c", "", "YAML run configuration")
	fs.BoolVarP(&f.print, "print", "p", false, "print materials and boundaries when done")
	fs.StringVar(&f.cfg.LogLevel, "log-level", def.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&f.cfg.Dev, "dev", false, "human-readable console logging")
	fs.StringVar(&f.cfg.Journal, "journal", "", "write the kernel commands as a Cubit journal")
	fs.StringVar(&f.cfg.Report, "report", "", "write the materials/boundaries report as JSON")
	fs.StringVar(&f.cfg.Preview, "preview", "", "write per-material preview meshes as JSON")
	fs.StringVar(&f.cfg.MetricsFile, "metrics-file", "", "write prometheus metrics in textfile format")
	fs.IntVar(&f.cfg.MeshCells, "mesh-cells", def.MeshCells, "marching cubes resolution for previews")
	fs.Float64Var(&f.cfg.Tolerance, "tolerance", def.Tolerance, "distance below which faces are coincident")
	fs.DurationVar(&f.cfg.EvalTimeout, "eval-timeout", def.EvalTimeout, "Lisp evaluation timeout")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.config != "" {
		fromFile, err := config.Load(f.config)
		if err != nil {
			return nil, nil, err
		}
		f.cfg = overlay(fromFile, f.cfg, fs)
	}
	if err := f.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// overlay returns base with the values of explicitly set flags applied.
func overlay(base, fl config.Config, fs *pflag.FlagSet) config.Config {
	set := func(name string) bool { return fs.Changed(name) }
	if set("log-level") {
		base.LogLevel = fl.LogLevel
	}
	if set("dev") {
		base.Dev = fl.Dev
	}
	if set("journal") {
		base.Journal = fl.Journal
	}
	if set("report") {
		base.Report = fl.Report
	}
	if set("preview") {
		base.Preview = fl.Preview
	}
	if set("metrics-file") {
		base.MetricsFile = fl.MetricsFile
	}
	if set("mesh-cells") {
		base.MeshCells = fl.MeshCells
	}
	if set("tolerance") {
		base.Tolerance = fl.Tolerance
	}
	if set("eval-timeout") {
		base.EvalTimeout = fl.EvalTimeout
	}
	return base
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, rest, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "blobmaker:", err)
		return 1
	}
	if len(rest) != 1 {
		fmt.Fprintln(stderr, "blobmaker: expected exactly one design file")
		return 1
	}

	log, err := f.cfg.Logger()
	if err != nil {
		fmt.Fprintln(stderr, "blobmaker:", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	app := NewApp(f.cfg, log)
	res, err := app.Run(ctx, rest[0])
	if merr := app.WriteMetrics(); merr != nil {
		log.Error("write metrics", zap.Error(merr))
	}
	if err != nil {
		log.Error("build failed", zap.String("design", rest[0]), zap.Error(err))
		fmt.Fprintln(stderr, "blobmaker:", err)
		return 1
	}
	if f.print {
		if err := res.PrintInfo(stdout); err != nil {
			fmt.Fprintln(stderr, "blobmaker:", err)
			return 1
		}
	}
	return 0
}
