package waypointconv

// AWS Rekognition detect-labels specific functionality.

import (
	"encoding/json"
	"os"
)

// AWSBoundingBox defines an axis-aligned rectangle with the dimensions given as normalised ratios
// of the image size.
type AWSBoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// AWSInstance is an object instance in an AWS label.
type AWSInstance struct {
	BoundingBox AWSBoundingBox
	Confidence  float64 // Range [0, 100].
}

// AWSLabel is a single annotation within an AWS labels file.
type AWSLabel struct {
	Confidence float64 // Range [0, 100].
	Instances  []AWSInstance
	Name       string
}

// AWSDLAnnotatedFile defines the AWS detect-labels annotation structure for a single file.
type AWSDLAnnotatedFile struct {
	Annotations  []AWSLabel `json:"Labels"`
	ModelVersion string     `json:"LabelModelVersion"`
}

// FromAWSDetectLabels reads AWS detect-labels results from labelDir and matches them to the images
// in imageDir. Every object instance contributes the centre of its bounding box as a waypoint,
// named by the label; repeated labels get a "_<n>" suffix, starting at 2.
func FromAWSDetectLabels(labelDir, imageDir string) ([]WaypointSet, error) {
	return readScenes(labelDir, ".json", imageDir, parseAWSDetectLabelsFile)
}

// parseAWSDetectLabelsFile reads the label instances of the detect-labels result of f as
// waypoints. The scene image supplies the extent that the normalised boxes are scaled by.
func parseAWSDetectLabelsFile(f sceneFile, set *WaypointSet) error {
	enc, err := os.ReadFile(f.LabelPath)
	if err != nil {
		return err
	}

	var awsFileData AWSDLAnnotatedFile
	if err := json.Unmarshal(enc, &awsFileData); err != nil {
		return err
	}

	img, _, err := decodeImageConfig(f.ImagePath)
	if err != nil {
		return err
	}
	set.Width, set.Height = float64(img.Width), float64(img.Height)

	seen := make(map[string]int)
	for _, a := range awsFileData.Annotations {
		// Only labels with instances have a position.
		for _, i := range a.Instances {
			box := i.BoundingBox
			set.Waypoints = append(set.Waypoints, Waypoint{
				Attributes: map[string]interface{}{
					Confidence:  i.Confidence / 100,
					Label:       a.Name,
					SourceShape: "bbox",
				},
				Coords: Point{
					X: (box.Left + box.Width/2) * set.Width,
					Y: (box.Top + box.Height/2) * set.Height,
				},
				ID: uniqueID(seen, a.Name),
			})
		}
	}

	return nil
}
