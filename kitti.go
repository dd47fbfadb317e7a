package waypointconv

// KITTI specific functionality.

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// KITTIAnnotation is a single object annotation within a KITTI file.
type KITTIAnnotation struct {
	Coords [4]float64 // x1, y1, x2, y2
	Label  string
}

// Center returns the centre of the bounding box.
func (a KITTIAnnotation) Center() Point {
	return Point{X: (a.Coords[0] + a.Coords[2]) / 2, Y: (a.Coords[1] + a.Coords[3]) / 2}
}

// FromKitti reads KITTI labels from labelDir and matches them to the images in imageDir. The
// centre of every bounding box becomes a waypoint, named by the object label. Repeated labels
// within a file get a "_<n>" suffix, starting at 2.
//
// The scene ID is the base name of the label file. Image paths are relative to imageDir.
func FromKitti(labelDir, imageDir string) ([]WaypointSet, error) {
	return readScenes(labelDir, ".txt", imageDir, parseKittiFile)
}

// parseKittiFile reads the bounding boxes of the KITTI label file of f as waypoints. Blank lines
// are ignored, malformed lines are logged and skipped.
func parseKittiFile(f sceneFile, set *WaypointSet) error {
	file, err := os.Open(f.LabelPath)
	if err != nil {
		return err
	}
	defer file.Close()

	seen := make(map[string]int)
	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, err := parseKittiAnnotation(line)
		if err != nil {
			log.Printf("Skipping line %d of %q: %v", lineNo, f.LabelPath, err)
			continue
		}

		set.Waypoints = append(set.Waypoints, Waypoint{
			Attributes: map[string]interface{}{Label: a.Label, SourceShape: "bbox"},
			Coords:     a.Center(),
			ID:         uniqueID(seen, a.Label),
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %q: %v", f.LabelPath, err)
	}

	return nil
}

// parseKittiAnnotation parses the line of values for a single annotation.
func parseKittiAnnotation(line string) (KITTIAnnotation, error) {
	a := KITTIAnnotation{}

	tokens := strings.Fields(line)
	if len(tokens) < 8 {
		return a, fmt.Errorf("insufficient tokens in %q", line)
	}

	a.Label = tokens[0]
	var err error
	for i := 4; i < 8 && err == nil; i++ {
		a.Coords[i-4], err = strconv.ParseFloat(tokens[i], 64)
	}
	if err != nil {
		return a, fmt.Errorf("unexpected values in %q: %v", line, err)
	}

	return a, nil
}
