package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/blobmaker/pkg/config"
	"github.com/chazu/blobmaker/pkg/materials"
)

// ---------------------------------------------------------------------------
// 1. Comments and whitespace only: empty design, one warning.
// ---------------------------------------------------------------------------

func TestE2ECommentsOnly(t *testing.T) {
	app := NewApp(config.Default(), nil)
	for _, src := range []string{";; nothing here\n;; still nothing", "   \n\t\n  "} {
		res, err := app.Evaluate(context.Background(), src)
		if err != nil {
			t.Fatalf("%q: %v", src, err)
		}
		if len(res.Report.Materials) != 0 {
			t.Errorf("%q: expected no materials, got %d", src, len(res.Report.Materials))
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax errors carry line information.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := NewApp(config.Default(), nil)

	// Valid code on line 1, broken code on line 2.
	_, err := app.Evaluate(context.Background(), "(+ 1 2)\n(brick :material \"steel\"")
	var evalErrs EvalErrors
	if !errors.As(err, &evalErrs) {
		t.Fatalf("expected EvalErrors, got %v", err)
	}
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

func TestE2EUndefinedFunction(t *testing.T) {
	app := NewApp(config.Default(), nil)
	_, err := app.Evaluate(context.Background(), `(sphere :material "steel")`)
	if err == nil || !strings.Contains(err.Error(), "sphere") {
		t.Errorf("expected error mentioning 'sphere', got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. Invalid geometry is rejected before anything reaches the kernel.
// ---------------------------------------------------------------------------

func TestE2EInvalidDesign(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"zero size", `(brick :material "steel" :size (vec3 0 1 1))`, "size"},
		{"negative thickness", `(layers :materials (list "a") :thickness -1)`, "thickness"},
		{"oblique rotation", `(brick :material "steel" :rotate (vec3 0 0 30))`, "rotation"},
		{"no material", `(brick :size 2)`, "material"},
	}
	app := NewApp(config.Default(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Evaluate(context.Background(), tt.src)
			var invalid *InvalidDesignError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidDesignError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 4. Rapid evaluation: fresh kernel per run, no state leaks between runs.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	app := NewApp(config.Default(), nil)

	sources := []string{
		`(brick :material "steel")`,
		`(brick :material`,
		``,
		`(undefined-func 1 2 3)`,
		`(brick :material "steel")`,
		`;; just a comment`,
		`(brick :material "steel" :size 0)`,
		`(brick :material "steel")`,
	}

	var reports []*materials.Report
	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			res, err := app.Evaluate(context.Background(), source)
			if err == nil && len(res.Report.Materials) > 0 {
				reports = append(reports, res.Report)
			}
		}()
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 successful builds, got %d", len(reports))
	}
	for _, r := range reports {
		if got := r.Materials[0].Volumes; len(got) != 1 || got[0] != 1 {
			t.Errorf("each run should start from volume 1, got %v", got)
		}
	}
}

// ---------------------------------------------------------------------------
// 5. Multiple roots and nested assemblies.
// ---------------------------------------------------------------------------

func TestE2EMultipleRoots(t *testing.T) {
	app := NewApp(config.Default(), nil)
	src := `
(brick :material "steel")
(brick :material "tungsten" :at (vec3 1 0 0))
`
	res, err := app.Evaluate(context.Background(), src)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Tree.Roots) != 2 {
		t.Errorf("expected 2 roots, got %d", len(res.Tree.Roots))
	}
	ids := boundaryIDs(res.Report)
	if got := ids["steel_tungsten"]; len(got) != 1 || got[0] != 2 {
		t.Errorf("steel_tungsten = %v, want [2]", got)
	}
}

func TestE2ESelfBoundaryWithoutUnite(t *testing.T) {
	app := NewApp(config.Default(), nil)
	src := `
(assembly "bar"
  (brick :material "steel")
  (brick :material "steel" :at (vec3 1 0 0)))
`
	res, err := app.Evaluate(context.Background(), src)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := boundaryIDs(res.Report)["steel_steel"]; len(got) != 1 || got[0] != 2 {
		t.Errorf("steel_steel = %v, want [2]", got)
	}
}

func TestE2ENestedUnite(t *testing.T) {
	app := NewApp(config.Default(), nil)
	src := `
(assembly "blob"
  (assembly "bar" :unite true
    (brick :material "steel")
    (brick :material "steel" :at (vec3 1 0 0))
    (brick :material "steel" :at (vec3 2 0 0)))
  (brick :material "water" :at (vec3 0 1 0) :size (vec3 3 1 1)))
`
	res, err := app.Evaluate(context.Background(), src)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := res.Report.Materials[0].Volumes; len(got) != 1 {
		t.Errorf("steel should be one fused volume, got %v", got)
	}
	ids := boundaryIDs(res.Report)
	if _, ok := ids["steel_steel"]; ok {
		t.Error("fused bar should have no self boundary")
	}
	if _, ok := ids["steel_water"]; ok {
		t.Error("three unit faces never coincide with one 3-long face")
	}
}

// ---------------------------------------------------------------------------
// 6. Files: missing file, bad extension content, metrics output.
// ---------------------------------------------------------------------------

func TestE2EMissingDesignFile(t *testing.T) {
	app := NewApp(config.Default(), nil)
	for _, name := range []string{"nope.json", "nope.yaml", "nope.zy"} {
		_, err := app.Run(context.Background(), filepath.Join(t.TempDir(), name))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s: expected ErrNotExist, got %v", name, err)
		}
	}
}

func TestE2EDesignWithoutClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"material": "steel"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	app := NewApp(config.Default(), nil)
	_, err := app.Run(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "class") {
		t.Errorf("expected class error, got %v", err)
	}
}

func TestE2EMetricsFile(t *testing.T) {
	cfg := config.Default()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "blobmaker.prom")
	app := NewApp(cfg, nil)

	if _, err := app.Run(context.Background(), "examples/shield.json"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := app.WriteMetrics(); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	data, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{
		"blobmaker_merge_attempts_total 6",
		`blobmaker_boundaries_total{kind="interface"} 2`,
		`blobmaker_boundaries_total{kind="air"} 3`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestE2ECancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app := NewApp(config.Default(), nil)
	_, err := app.Run(ctx, "examples/shield.json")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 7. CLI.
// ---------------------------------------------------------------------------

func TestCLIPrint(t *testing.T) {
	var stdout, stderr strings.Builder
	code := run(context.Background(), []string{"--log-level", "error", "--print", "examples/shield.json"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	for _, want := range []string{"steel: Volumes [3]", "steel_water: Surfaces [8]", "water_lead: Surfaces [14]"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestCLIErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no design", nil, "exactly one design file"},
		{"two designs", []string{"a.json", "b.json"}, "exactly one design file"},
		{"bad flag", []string{"--frobnicate"}, "unknown flag"},
		{"bad level", []string{"--log-level", "loud", "x.json"}, "log_level"},
		{"missing config", []string{"--config", "/nonexistent/blobmaker.yaml", "x.json"}, "no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr strings.Builder
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr %q does not mention %q", stderr.String(), tt.want)
			}
		})
	}
}

func TestCLIFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blobmaker.yaml")
	if err := os.WriteFile(path, []byte("mesh_cells: 32\nreport: from-file.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stderr strings.Builder
	f, rest, err := parseFlags([]string{"--config", path, "--mesh-cells", "8", "d.json"}, &stderr)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.cfg.MeshCells != 8 {
		t.Errorf("mesh cells = %d, want flag value 8", f.cfg.MeshCells)
	}
	if f.cfg.Report != "from-file.json" {
		t.Errorf("report = %q, want file value", f.cfg.Report)
	}
	if f.cfg.LogLevel != config.DefaultLogLevel {
		t.Errorf("log level = %q, want default", f.cfg.LogLevel)
	}
	if len(rest) != 1 || rest[0] != "d.json" {
		t.Errorf("args = %v", rest)
	}
}
