package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/blobmaker/pkg/build"
	"github.com/chazu/blobmaker/pkg/config"
	"github.com/chazu/blobmaker/pkg/design"
	"github.com/chazu/blobmaker/pkg/engine"
	"github.com/chazu/blobmaker/pkg/kernel"
	"github.com/chazu/blobmaker/pkg/kernel/journal"
	"github.com/chazu/blobmaker/pkg/kernel/sdfx"
	"github.com/chazu/blobmaker/pkg/materials"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App builds blob designs. Every Run gets a fresh kernel and tracker; the
// engine, loader and metrics registry are shared across runs.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	engine  *engine.Engine
	loader  *design.Loader
	reg     *prometheus.Registry
	metrics *materials.Metrics
}

// EvalErrors is returned when Lisp source fails to evaluate.
type EvalErrors []engine.EvalError

func (e EvalErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ee := range e {
		msgs[i] = ee.Error()
	}
	return "eval: " + strings.Join(msgs, "; ")
}

// InvalidDesignError carries the validation findings of a rejected design.
type InvalidDesignError struct {
	Issues []design.ValidationError
}

func (e *InvalidDesignError) Error() string {
	var msgs []string
	for _, i := range e.Issues {
		if i.Severity == design.SeverityError {
			msgs = append(msgs, i.Error())
		}
	}
	return "invalid design: " + strings.Join(msgs, "; ")
}

// Result is everything a run produced.
type Result struct {
	Run      string
	Tree     *design.Tree
	Warnings []design.ValidationError
	Report   *materials.Report
	Meshes   []*kernel.Mesh

	tracker *materials.Tracker
}

// PrintInfo dumps the tracker state.
func (r *Result) PrintInfo(w io.Writer) error {
	return r.tracker.PrintInfo(w)
}

// NewApp creates an App. A nil logger disables logging.
func NewApp(cfg config.Config, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	return &App{
		cfg:     cfg,
		log:     log,
		engine:  engine.NewEngine(engine.WithTimeout(cfg.EvalTimeout), engine.WithLogger(log.Named("engine"))),
		loader:  design.NewLoader(design.WithLogger(log.Named("design"))),
		reg:     reg,
		metrics: materials.NewMetrics(reg),
	}
}

// Registry exposes the metrics collected across runs.
func (a *App) Registry() *prometheus.Registry {
	return a.reg
}

// LoadDesign reads a design file. ".zy" files are evaluated as Lisp;
// anything else goes through the JSON/YAML loader.
func (a *App) LoadDesign(path string) (*design.Tree, error) {
	if strings.EqualFold(filepath.Ext(path), ".zy") {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read design: %w", err)
		}
		return a.evaluate(string(src))
	}
	tree, _, err := a.loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return tree, nil
}

func (a *App) evaluate(source string) (*design.Tree, error) {
	tree, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		return nil, EvalErrors(evalErrs)
	}
	return tree, nil
}

// Run loads the design at path and builds it.
func (a *App) Run(ctx context.Context, path string) (*Result, error) {
	tree, err := a.LoadDesign(path)
	if err != nil {
		return nil, err
	}
	return a.Build(ctx, tree)
}

// Evaluate evaluates Lisp source and builds the result.
func (a *App) Evaluate(ctx context.Context, source string) (*Result, error) {
	tree, err := a.evaluate(source)
	if err != nil {
		return nil, err
	}
	return a.Build(ctx, tree)
}

// Build validates and constructs a tree, then writes the outputs the
// configuration names.
func (a *App) Build(ctx context.Context, tree *design.Tree) (res *Result, err error) {
	run := uuid.NewString()
	log := a.log.With(zap.String("run", run))

	issues := design.Validate(tree)
	if design.HasErrors(issues) {
		return nil, &InvalidDesignError{Issues: issues}
	}
	for _, w := range issues {
		log.Warn("design warning", zap.String("path", w.Path), zap.String("message", w.Message))
	}

	base := sdfx.New(sdfx.WithTolerance(a.cfg.Tolerance), sdfx.WithMeshCells(a.cfg.MeshCells))
	var k interface {
		kernel.Kernel
		kernel.Modeler
	} = base
	if a.cfg.Journal != "" {
		f, ferr := os.Create(a.cfg.Journal)
		if ferr != nil {
			return nil, fmt.Errorf("journal: %w", ferr)
		}
		rec := journal.New(base, f)
		defer func() {
			err = errors.Join(err, rec.Err(), f.Close())
		}()
		k = rec
	}

	tracker := materials.NewTracker(k, materials.WithLogger(log.Named("materials")), materials.WithMetrics(a.metrics))
	report, err := build.New(k, tracker, build.WithLogger(log.Named("build"))).Build(ctx, tree)
	if err != nil {
		return nil, err
	}
	res = &Result{Run: run, Tree: tree, Warnings: issues, Report: report, tracker: tracker}

	if a.cfg.Preview != "" {
		res.Meshes, err = build.Preview(ctx, k, tracker)
		if err != nil {
			return nil, err
		}
		if err := writeJSON(a.cfg.Preview, res.Meshes); err != nil {
			return nil, fmt.Errorf("preview: %w", err)
		}
	}
	if a.cfg.Report != "" {
		if err := writeJSON(a.cfg.Report, report); err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
	}
	log.Info("run complete",
		zap.Int("nodes", tree.NodeCount()),
		zap.Int("materials", len(report.Materials)),
		zap.Int("boundaries", len(report.Boundaries)))
	return res, nil
}

// WriteMetrics writes the registry in the textfile-collector format when a
// metrics file is configured.
func (a *App) WriteMetrics() error {
	if a.cfg.MetricsFile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(a.cfg.MetricsFile, a.reg)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
