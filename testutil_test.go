package waypointconv

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writePNG writes a black width x height PNG to dir/name and returns its path.
func writePNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Black)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("cannot create %q: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("cannot encode %q: %v", path, err)
	}
	return path
}

// writeText writes content to dir/name and returns its path.
func writeText(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("cannot write %q: %v", path, err)
	}
	return path
}

// waypointsByID indexes the waypoints of s by ID.
func waypointsByID(s WaypointSet) map[string]Waypoint {
	m := make(map[string]Waypoint, len(s.Waypoints))
	for _, w := range s.Waypoints {
		m[w.ID] = w
	}
	return m
}
