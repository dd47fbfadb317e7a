package waypointconv

// Sloth specific functionality.

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// SlothAnnotation is a single annotation within a Sloth file.
type SlothAnnotation struct {
	Class  string  `json:"class,omitempty"`
	Type   string  `json:"type,omitempty"` // "point" or "rect".
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// SlothAnnotatedFile defines the Sloth annotation structure for a single file.
type SlothAnnotatedFile struct {
	Annotations []SlothAnnotation `json:"annotations"`
	Class       string            `json:"class,omitempty"`
	FilePath    string            `json:"filename,omitempty"`
}

// FromSloth reads and parses Sloth annotations from the file at path. Point annotations become
// waypoints as they are, rect annotations contribute their centre. The annotation class is the
// waypoint ID.
func FromSloth(path string) ([]WaypointSet, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var slothData []SlothAnnotatedFile
	err = json.Unmarshal(enc, &slothData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Sloth input from %q: %v", path, err)
	}

	data := make([]WaypointSet, 0, len(slothData))
	for _, slothFileData := range slothData {
		set := WaypointSet{
			FilePath:  slothFileData.FilePath,
			Waypoints: make([]Waypoint, 0, len(slothFileData.Annotations)),
		}
		for _, a := range slothFileData.Annotations {
			w := Waypoint{
				Attributes: map[string]interface{}{SourceShape: a.Type},
				Coords:     Point{X: a.X, Y: a.Y},
				ID:         a.Class,
			}
			switch a.Type {
			case "point":
			case "rect":
				w.Coords.X += a.Width / 2
				w.Coords.Y += a.Height / 2
			default:
				log.Printf("Skipping unsupported Sloth annotation type %q in %q", a.Type,
					slothFileData.FilePath)
				continue
			}
			set.Waypoints = append(set.Waypoints, w)
		}
		data = append(data, set)
	}

	return data, nil
}

// ToSloth converts the intermediate representation to Sloth point annotations.
func ToSloth(data []WaypointSet) []SlothAnnotatedFile {
	slothData := make([]SlothAnnotatedFile, 0, len(data))
	for _, set := range data {
		slothFileData := SlothAnnotatedFile{
			Annotations: make([]SlothAnnotation, len(set.Waypoints)),
			Class:       "image",
			FilePath:    set.FilePath,
		}
		for i, w := range set.Waypoints {
			slothFileData.Annotations[i] = SlothAnnotation{
				Class: w.ID,
				Type:  "point",
				X:     w.Coords.X,
				Y:     w.Coords.Y,
			}
		}
		slothData = append(slothData, slothFileData)
	}

	return slothData
}

// WriteSloth writes the Sloth annotations to outFile.
func WriteSloth(outFile string, data []SlothAnnotatedFile) error {
	enc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(outFile, enc)
}
