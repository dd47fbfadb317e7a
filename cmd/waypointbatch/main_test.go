package main

import (
	"encoding/json"
	"errors"
	"flag"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sensorable/waypointconv"
)

const viaProject = `{
  "_via_settings": {},
  "_via_attributes": {"region": {}, "file": {}},
  "_via_img_metadata": {
    "lobby.png1": {
      "filename": "lobby.png",
      "size": 1,
      "file_attributes": {"Scene": "S1"},
      "regions": [
        {"shape_attributes": {"name": "point", "cx": 250, "cy": 410},
         "region_attributes": {"Waypoint": "S1.1"}},
        {"shape_attributes": {"name": "rect", "x": 393, "y": 362, "width": 20, "height": 20},
         "region_attributes": {"Waypoint": "S1.2"}}
      ]
    },
    "hall.png1": {
      "filename": "hall.png",
      "size": 1,
      "file_attributes": {"Scene": "S2"},
      "regions": [
        {"shape_attributes": {"name": "point", "cx": 10, "cy": 10},
         "region_attributes": {"Waypoint": "exit"}}
      ]
    }
  }
}`

const pixelSceneDocument = `{
  "sceneWaypoints": [
    {
      "sceneId": "S1",
      "coordSystem": "pixel",
      "image": {"path": "lobby.png", "width": 1000, "height": 576},
      "waypoints": [
        {"waypointId": "S1.1", "x": 250, "y": 410},
        {"waypointId": "S1.2", "x": 403, "y": 372}
      ]
    }
  ]
}`

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("cannot write %q: %v", path, err)
	}
	return path
}

func writeImage(t *testing.T, dir, name string, width, height int) {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("cannot create %q: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("cannot encode %q: %v", path, err)
	}
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()

	enc, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read %q: %v", path, err)
	}
	if err := json.Unmarshal(enc, v); err != nil {
		t.Fatalf("cannot decode %q: %v", path, err)
	}
}

// slothByFile indexes Sloth output by image file name and annotation class.
func slothByFile(files []waypointconv.SlothAnnotatedFile) map[string]map[string]waypointconv.SlothAnnotation {
	m := make(map[string]map[string]waypointconv.SlothAnnotation, len(files))
	for _, f := range files {
		m[f.FilePath] = make(map[string]waypointconv.SlothAnnotation, len(f.Annotations))
		for _, a := range f.Annotations {
			m[f.FilePath][a.Class] = a
		}
	}
	return m
}

func TestRunSceneRescale(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.json", pixelSceneDocument)
	out := filepath.Join(dir, "out.json")

	err := run([]string{"-from", "scene", "-to", "scene", "-labels", in, "-labels-out", out,
		"-rescale-width", "500"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc waypointconv.SceneDocument
	readJSON(t, out, &doc)
	if len(doc.SceneWaypoints) != 1 {
		t.Fatalf("expected 1 scene, got %+v", doc)
	}
	s := doc.SceneWaypoints[0]
	if s.CoordSystem != waypointconv.CoordSystemPercent {
		t.Errorf("expected percent coordinates, got %q", s.CoordSystem)
	}
	if s.Image == nil || s.Image.Width != 500 || s.Image.Height != 288 {
		t.Fatalf("expected a 500x288 image, got %+v", s.Image)
	}

	// Rescaling keeps the relative positions.
	want := []waypointconv.SceneWaypoint{
		{WaypointID: "S1.1", X: 25, Y: 71.18},
		{WaypointID: "S1.2", X: 40.3, Y: 64.58},
	}
	if len(s.Waypoints) != len(want) {
		t.Fatalf("expected %d waypoints, got %+v", len(want), s.Waypoints)
	}
	for i, w := range want {
		if s.Waypoints[i] != w {
			t.Errorf("waypoint %d: expected %+v, got %+v", i, w, s.Waypoints[i])
		}
	}
}

func TestRunVIAToSlothWithoutExtents(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "via.json", viaProject)
	out := filepath.Join(dir, "sloth.json")

	// No images and no extents are available, and none are needed.
	err := run([]string{"-from", "via", "-to", "sloth", "-labels", in, "-labels-out", out},
		io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var files []waypointconv.SlothAnnotatedFile
	readJSON(t, out, &files)
	byFile := slothByFile(files)
	if len(byFile) != 2 {
		t.Fatalf("expected 2 files, got %+v", files)
	}
	if got := byFile["lobby.png"]["S1.1"]; got.X != 250 || got.Y != 410 || got.Type != "point" {
		t.Errorf("S1.1: expected a point at (250, 410), got %+v", got)
	}
	if got := byFile["lobby.png"]["S1.2"]; got.X != 403 || got.Y != 372 {
		t.Errorf("S1.2: expected the rect centre (403, 372), got %+v", got)
	}
	if got := byFile["hall.png"]["exit"]; got.X != 10 || got.Y != 10 {
		t.Errorf("exit: expected (10, 10), got %+v", got)
	}
}

func TestRunVIAToSceneWithoutExtents(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "via.json", viaProject)
	out := filepath.Join(dir, "scenes.json")

	err := run([]string{"-from", "via", "-to", "scene", "-labels", in, "-labels-out", out,
		"-images", t.TempDir()}, io.Discard)
	if err == nil {
		t.Fatal("expected an error for scenes without an extent or image")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("expected no output file, got %v", err)
	}
}

func TestRunFilters(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "via.json", viaProject)
	out := filepath.Join(dir, "sloth.json")

	// The expression sees the mapped IDs and the default extent. S1.2 only passes it by its new
	// ID, and exit passes it but not the ID filter, which empties the hall scene.
	err := run([]string{"-from", "via", "-to", "sloth", "-labels", in, "-labels-out", out,
		"-width", "1000", "-height", "576",
		"-map-ids", "S1.=door-",
		"-filter-expr", `x < width / 3 or id == "door-2"`,
		"-filter-ids", "door-1,door-2",
		"-require-waypoint"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var files []waypointconv.SlothAnnotatedFile
	readJSON(t, out, &files)
	byFile := slothByFile(files)
	if len(byFile) != 1 || len(byFile["lobby.png"]) != 2 {
		t.Fatalf("expected only lobby.png with 2 waypoints, got %+v", files)
	}
	if _, ok := byFile["lobby.png"]["door-2"]; !ok {
		t.Errorf("expected door-2, got %+v", files)
	}
}

func TestRunSplit(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "via.json", viaProject)
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	err := run([]string{"-from", "via", "-to", "sloth", "-labels", in,
		"-labels-out", first + "," + second, "-split", "0,100"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var firstFiles, secondFiles []waypointconv.SlothAnnotatedFile
	readJSON(t, first, &firstFiles)
	readJSON(t, second, &secondFiles)
	if len(firstFiles) != 0 || len(secondFiles) != 2 {
		t.Errorf("expected 0 and 2 scenes, got %d and %d", len(firstFiles), len(secondFiles))
	}
}

func TestRunPreviewsAndTFRecord(t *testing.T) {
	dir := t.TempDir()
	imageDir := t.TempDir()
	previewDir := t.TempDir()
	writeImage(t, imageDir, "lobby.png", 1000, 576)
	in := writeInput(t, dir, "in.json", pixelSceneDocument)
	out := filepath.Join(dir, "waypoints.tfrecord")

	err := run([]string{"-from", "scene", "-to", "tfrecord", "-labels", in, "-labels-out", out,
		"-images", imageDir, "-preview-out", previewDir, "-preview-width", "200",
		"-image-enc", "png"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Errorf("expected a non-empty TFRecord file, got %v", err)
	}

	f, err := os.Open(filepath.Join(previewDir, "lobby_waypoints.png"))
	if err != nil {
		t.Fatalf("expected a preview image: %v", err)
	}
	defer f.Close()
	config, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("cannot decode the preview: %v", err)
	}
	if config.Width != 200 {
		t.Errorf("expected a preview width of 200, got %d", config.Width)
	}
}

func TestRunInvalidArguments(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "via.json", viaProject)
	out := filepath.Join(dir, "out.json")

	tests := []struct {
		name string
		args []string
	}{
		{"missing input format", []string{"-to", "sloth", "-labels", in, "-labels-out", out}},
		{"unsupported output format", []string{"-from", "via", "-to", "kitti", "-labels", in,
			"-labels-out", out}},
		{"missing output path", []string{"-from", "via", "-to", "sloth", "-labels", in}},
		{"kitti without images", []string{"-from", "kitti", "-to", "sloth", "-labels", dir,
			"-labels-out", out}},
		{"split count mismatch", []string{"-from", "via", "-to", "sloth", "-labels", in,
			"-labels-out", out, "-split", "50,50"}},
		{"split sum", []string{"-from", "via", "-to", "sloth", "-labels", in,
			"-labels-out", out + ",b.json", "-split", "50,40"}},
		{"negative split", []string{"-from", "via", "-to", "sloth", "-labels", in,
			"-labels-out", out + ",b.json", "-split", "-10,110"}},
		{"confidence out of range", []string{"-from", "via", "-to", "sloth", "-labels", in,
			"-labels-out", out, "-min-confidence", "1"}},
		{"width without height", []string{"-from", "via", "-to", "sloth", "-labels", in,
			"-labels-out", out, "-width", "100"}},
		{"same input and output", []string{"-from", "via", "-to", "via", "-labels", in,
			"-labels-out", in}},
		{"unknown flag", []string{"-from", "via", "-to", "sloth", "-labels", in,
			"-labels-out", out, "-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args, io.Discard); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("expected no output file, got %v", err)
	}
}

func TestRunHelp(t *testing.T) {
	if err := run([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
}
