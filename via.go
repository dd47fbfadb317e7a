package waypointconv

// VGG Image Annotator (VIA) specific functionality.

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
)

// VIAShape describes the shape of a region. Only the fields of the named shape are set.
type VIAShape struct {
	Name   string   `json:"name"` // "point" or "rect"
	Cx     *float64 `json:"cx,omitempty"`
	Cy     *float64 `json:"cy,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// VIARegionAnnotation is a single region annotation for a particular image in a VIA file.
type VIARegionAnnotation struct {
	Attributes map[string]string `json:"region_attributes"`
	Shape      VIAShape          `json:"shape_attributes"`
}

// VIAAnnotatedFile defines the VIA annotation structure for a single file.
type VIAAnnotatedFile struct {
	Annotations []VIARegionAnnotation `json:"regions"`
	Attributes  map[string]string     `json:"file_attributes"`
	FilePath    string                `json:"filename"`
	Size        int64                 `json:"size"`
}

// VIATextAttribute defines attributes of type "text".
type VIATextAttribute struct {
	Type         string `json:"type"` // "text"
	Description  string `json:"description"`
	DefaultValue string `json:"default_value"`
}

// VIAAttributes defines the VIA attribute metadata.
type VIAAttributes struct {
	Region map[string]VIATextAttribute `json:"region"`
	File   map[string]VIATextAttribute `json:"file"`
}

// VIAProject defines the VIA project structure.
type VIAProject struct {
	Attributes    VIAAttributes               `json:"_via_attributes"`
	ImageMetadata map[string]VIAAnnotatedFile `json:"_via_img_metadata"`
	// Must exist for VIA to load the project. Default values will be used.
	Settings struct{} `json:"_via_settings"`
}

// The attribute keys used for waypoint IDs and scene IDs.
const (
	viaWaypointAttribute = "Waypoint"
	viaSceneAttribute    = "Scene"
)

// FromVIA reads and parses VIA annotations from the file at path.
//
// Point regions become waypoints at (cx, cy), rect regions at their centre. The waypoint ID is
// taken from the "Waypoint" region attribute, then the "Label" attribute, and falls back to the
// image base name with the region index appended.
func FromVIA(path string) ([]WaypointSet, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var viaData VIAProject
	err = json.Unmarshal(enc, &viaData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse VIA input from %q: %v", path, err)
	}

	data := make([]WaypointSet, 0, len(viaData.ImageMetadata))
	for _, viaFile := range viaData.ImageMetadata {
		set := WaypointSet{
			FilePath:  viaFile.FilePath,
			SceneID:   viaFile.Attributes[viaSceneAttribute],
			Waypoints: make([]Waypoint, 0, len(viaFile.Annotations)),
		}
		for i, a := range viaFile.Annotations {
			coords, ok := viaShapeCoords(a.Shape)
			if !ok {
				log.Printf("Skipping region %d of %q with unsupported shape %q", i, viaFile.FilePath,
					a.Shape.Name)
				continue
			}

			w := Waypoint{
				Attributes: map[string]interface{}{SourceShape: a.Shape.Name},
				Coords:     coords,
			}
			for k, v := range a.Attributes {
				if k != viaWaypointAttribute {
					w.Attributes[k] = v
				}
			}

			switch {
			case a.Attributes[viaWaypointAttribute] != "":
				w.ID = a.Attributes[viaWaypointAttribute]
			case a.Attributes[Label] != "":
				w.ID = a.Attributes[Label]
			default:
				base := filepath.Base(viaFile.FilePath)
				w.ID = fmt.Sprintf("%s_%02d", base[0:len(base)-len(filepath.Ext(base))], i)
			}

			set.Waypoints = append(set.Waypoints, w)
		}
		data = append(data, set)
	}

	return data, nil
}

// viaShapeCoords returns the waypoint position for a point or rect shape.
func viaShapeCoords(s VIAShape) (Point, bool) {
	value := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}

	switch s.Name {
	case "point":
		return Point{X: value(s.Cx), Y: value(s.Cy)}, true
	case "rect":
		return Point{
			X: value(s.X) + value(s.Width)/2,
			Y: value(s.Y) + value(s.Height)/2,
		}, true
	}
	return Point{}, false
}

// ToVIA converts the intermediate representation to a VIA project with point regions. Point
// coordinates are rounded to whole pixels, as VIA expects.
func ToVIA(data []WaypointSet) VIAProject {
	viaData := VIAProject{
		Attributes: VIAAttributes{
			Region: map[string]VIATextAttribute{
				viaWaypointAttribute: {Type: "text", Description: "Waypoint ID"},
			},
			File: make(map[string]VIATextAttribute),
		},
		ImageMetadata: make(map[string]VIAAnnotatedFile, len(data)),
	}

	for _, set := range data {
		viaFile := VIAAnnotatedFile{
			Annotations: make([]VIARegionAnnotation, 0, len(set.Waypoints)),
			Attributes:  make(map[string]string), // Must not be nil as that becomes JSON null.
			FilePath:    set.FilePath,
		}
		if set.SceneID != "" {
			viaFile.Attributes[viaSceneAttribute] = set.SceneID
			viaData.Attributes.File[viaSceneAttribute] = VIATextAttribute{
				Type: "text", Description: "Scene ID",
			}
		}

		for _, w := range set.Waypoints {
			cx := math.Round(w.Coords.X)
			cy := math.Round(w.Coords.Y)
			viaFile.Annotations = append(viaFile.Annotations, VIARegionAnnotation{
				Attributes: map[string]string{viaWaypointAttribute: w.ID},
				Shape:      VIAShape{Name: "point", Cx: &cx, Cy: &cy},
			})
		}
		viaData.ImageMetadata[viaFile.FilePath] = viaFile
	}

	return viaData
}

// WriteVIA writes the VIA project data to outFile.
func WriteVIA(outFile string, data VIAProject) error {
	enc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(outFile, enc)
}
