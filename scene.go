package waypointconv

// Scene waypoint documents, as consumed by the scene view and waypoint map components.

import (
	"encoding/json"
	"fmt"
	"os"
)

// The coordinate systems of a scene waypoint set.
const (
	CoordSystemPercent = "percent"
	CoordSystemPixel   = "pixel"
)

// SceneImage describes the image a scene's waypoints refer to.
type SceneImage struct {
	Path   string  `json:"path,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// SceneWaypoint is a single waypoint in a scene document.
type SceneWaypoint struct {
	WaypointID string  `json:"waypointId"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// SceneWaypointSet holds the waypoints of one scene. CoordSystem defaults to percent.
type SceneWaypointSet struct {
	SceneID     string          `json:"sceneId,omitempty"`
	CoordSystem string          `json:"coordSystem,omitempty"`
	Image       *SceneImage     `json:"image,omitempty"`
	Waypoints   []SceneWaypoint `json:"waypoints"`
}

// SceneDocument is the top level of a scene waypoint file.
type SceneDocument struct {
	SceneWaypoints []SceneWaypointSet `json:"sceneWaypoints"`
}

// FromScenes reads, validates and parses the scene waypoint document at path.
//
// Sets in pixel space are taken as they are. Sets in percent space are converted to pixel space,
// which requires the image width and height in the document.
func FromScenes(path string) ([]WaypointSet, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateSceneDocument(enc); err != nil {
		return nil, fmt.Errorf("invalid scene document %q: %v", path, err)
	}

	var doc SceneDocument
	if err := json.Unmarshal(enc, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scene input from %q: %v", path, err)
	}

	data := make([]WaypointSet, 0, len(doc.SceneWaypoints))
	for _, s := range doc.SceneWaypoints {
		set := WaypointSet{
			SceneID:   s.SceneID,
			Waypoints: make([]Waypoint, len(s.Waypoints)),
		}
		if s.Image != nil {
			set.FilePath = s.Image.Path
			set.Width = s.Image.Width
			set.Height = s.Image.Height
		}

		percent := s.CoordSystem == "" || s.CoordSystem == CoordSystemPercent
		if percent && (set.Width == 0 || set.Height == 0) {
			return nil, fmt.Errorf("scene %q in %q is in percent space but has no image extent: %w",
				s.SceneID, path, ErrDivisionByZero)
		}

		for i, w := range s.Waypoints {
			coords := Point{X: w.X, Y: w.Y}
			if percent {
				coords.X, coords.Y = PercentToPixel(w.X, w.Y, set.Width, set.Height)
			}
			set.Waypoints[i] = Waypoint{Coords: coords, ID: w.WaypointID}
		}
		data = append(data, set)
	}

	return data, nil
}

// ToScenes converts the intermediate representation to a scene document in percent space.
func ToScenes(data []WaypointSet) (SceneDocument, error) {
	percentSets, err := WaypointSets(data).ToPercent()
	if err != nil {
		return SceneDocument{}, err
	}

	doc := SceneDocument{SceneWaypoints: make([]SceneWaypointSet, 0, len(percentSets))}
	for _, p := range percentSets {
		s := SceneWaypointSet{
			SceneID:     p.SceneID,
			CoordSystem: CoordSystemPercent,
			Image:       &SceneImage{Path: p.FilePath, Width: p.Width, Height: p.Height},
			Waypoints:   make([]SceneWaypoint, len(p.IDs)),
		}
		for i, id := range p.IDs {
			pt := p.Points[id]
			s.Waypoints[i] = SceneWaypoint{WaypointID: id, X: pt.X, Y: pt.Y}
		}
		doc.SceneWaypoints = append(doc.SceneWaypoints, s)
	}

	return doc, nil
}

// WriteScenes writes the scene document to outFile.
func WriteScenes(outFile string, doc SceneDocument) error {
	enc, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(outFile, enc)
}
