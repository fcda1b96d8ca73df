package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/blobmaker/pkg/config"
	"github.com/chazu/blobmaker/pkg/kernel"
	"github.com/chazu/blobmaker/pkg/materials"
)

func boundaryIDs(r *materials.Report) map[string][]int {
	out := make(map[string][]int)
	for _, b := range r.Boundaries {
		out[b.Name] = b.Surfaces
	}
	return out
}

func materialNames(r *materials.Report) []string {
	var out []string
	for _, m := range r.Materials {
		out = append(out, m.Name)
	}
	return out
}

// TestE2EShieldJSON exercises the full pipeline: JSON design with a YAML
// component file → loader → kernel → tracker → outputs.
func TestE2EShieldJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.MeshCells = 16
	cfg.Journal = filepath.Join(dir, "shield.jou")
	cfg.Report = filepath.Join(dir, "report.json")
	cfg.Preview = filepath.Join(dir, "preview.json")

	app := NewApp(cfg, nil)
	res, err := app.Run(context.Background(), "examples/shield.json")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Run == "" {
		t.Error("run id not set")
	}

	if got, want := materialNames(res.Report), []string{"steel", "water", "lead"}; !reflect.DeepEqual(got, want) {
		t.Errorf("materials = %v, want %v", got, want)
	}
	if got := res.Report.Materials[0].Volumes; !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("fused steel volumes = %v, want [3]", got)
	}

	ids := boundaryIDs(res.Report)
	if got := ids["steel_water"]; !reflect.DeepEqual(got, []int{8}) {
		t.Errorf("steel_water = %v, want [8]", got)
	}
	if got := ids["water_lead"]; !reflect.DeepEqual(got, []int{14}) {
		t.Errorf("water_lead = %v, want [14]", got)
	}
	for _, name := range []string{"steel_steel", "steel_lead"} {
		if _, ok := ids[name]; ok {
			t.Errorf("unexpected boundary %s", name)
		}
	}
	for _, name := range []string{"steel_air", "water_air", "lead_air"} {
		if len(ids[name]) == 0 {
			t.Errorf("missing air boundary %s", name)
		}
	}

	var onDisk materials.Report
	data, err := os.ReadFile(cfg.Report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if !reflect.DeepEqual(boundaryIDs(&onDisk), ids) {
		t.Errorf("report on disk differs from result")
	}

	jou, err := os.ReadFile(cfg.Journal)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	for _, line := range []string{
		"brick x 0.5 y 1 z 1",
		"unite volume 1 2",
		`group "steel" add volume 3`,
		`sideset 4 name "steel_water"`,
	} {
		if !strings.Contains(string(jou), line) {
			t.Errorf("journal missing %q", line)
		}
	}

	var meshes []*kernel.Mesh
	data, err = os.ReadFile(cfg.Preview)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if err := json.Unmarshal(data, &meshes); err != nil {
		t.Fatalf("preview is not JSON: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(meshes))
	}
	for _, m := range meshes {
		if m.IsEmpty() {
			t.Errorf("material %q: empty mesh", m.Material)
		}
	}
}

// TestE2EShieldLispMatchesJSON builds the same shield from Lisp source.
func TestE2EShieldLispMatchesJSON(t *testing.T) {
	app := NewApp(config.Default(), nil)

	fromJSON, err := app.Run(context.Background(), "examples/shield.json")
	if err != nil {
		t.Fatalf("Run json: %v", err)
	}
	fromLisp, err := app.Run(context.Background(), "examples/shield.zy")
	if err != nil {
		t.Fatalf("Run zy: %v", err)
	}
	if !reflect.DeepEqual(fromJSON.Report, fromLisp.Report) {
		t.Errorf("reports differ:\njson %+v\nlisp %+v", fromJSON.Report, fromLisp.Report)
	}
	if fromJSON.Run == fromLisp.Run {
		t.Error("runs share an id")
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp(config.Default(), nil)
	res, err := app.Evaluate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error for empty source: %v", err)
	}
	if len(res.Report.Materials) != 0 || len(res.Report.Boundaries) != 0 {
		t.Errorf("expected an empty report, got %+v", res.Report)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected one warning for an empty design, got %v", res.Warnings)
	}
}

// TestE2ESyntaxError ensures eval errors are reported as EvalErrors.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp(config.Default(), nil)
	_, err := app.Evaluate(context.Background(), `(brick :material "steel"`)

	var evalErrs EvalErrors
	if !errors.As(err, &evalErrs) {
		t.Fatalf("expected EvalErrors, got %v", err)
	}
	if len(evalErrs) == 0 || evalErrs[0].Message == "" {
		t.Errorf("expected a message, got %v", evalErrs)
	}
}

// TestE2ESingleBrick ensures a minimal source yields one material whose
// every surface faces the air.
func TestE2ESingleBrick(t *testing.T) {
	app := NewApp(config.Default(), nil)
	res, err := app.Evaluate(context.Background(), `(brick :material "steel" :size (vec3 2 1 1))`)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	ids := boundaryIDs(res.Report)
	if len(ids) != 1 || !reflect.DeepEqual(ids["steel_air"], []int{1, 2, 3, 4, 5, 6}) {
		t.Errorf("boundaries = %v", ids)
	}

	var sb strings.Builder
	if err := res.PrintInfo(&sb); err != nil {
		t.Fatalf("PrintInfo: %v", err)
	}
	want := "Materials:\nsteel: Volumes [1]\n\nBoundaries:\nsteel_air: Surfaces [1 2 3 4 5 6]\n"
	if sb.String() != want {
		t.Errorf("PrintInfo =\n%s\nwant\n%s", sb.String(), want)
	}
}
