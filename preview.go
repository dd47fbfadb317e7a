package waypointconv

// Waypoint preview rendering.

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

const (
	previewSuffix       = "_waypoints"
	previewMarkerRadius = 5.0
)

// RenderPreviews draws the waypoints of every set onto a copy of its scene image and writes the
// result to imageOutDir using the specified encoding. Relative image paths are resolved against
// imageDir.
//
// The image is first resized to displayWidth (zero keeps the original size). Waypoints are then
// placed by their percentage coordinates, so the preview shows where a renderer at that display
// size would put them.
func (data WaypointSets) RenderPreviews(imageDir, imageOutDir string, displayWidth int,
	encoding string, jpegQuality int) error {

	if len(data) == 0 {
		return nil
	}
	fileExt, err := imageFileExt(encoding)
	if err != nil {
		return err
	}
	if dirInfo, err := os.Stat(imageOutDir); err != nil || !dirInfo.IsDir() {
		return fmt.Errorf("cannot access directory %q: %v", imageOutDir, err)
	}
	log.Printf("Rendering previews for %d scenes", len(data))

	sets := make([]*WaypointSet, len(data))
	for i := range data {
		sets[i] = &data[i]
	}

	return runWorkQueue(sets, func(s *WaypointSet) error {
		inPath := resolveImagePath(imageDir, s.FilePath)
		img, err := loadImage(inPath)
		if err != nil {
			return fmt.Errorf("failed to load %q: %v", inPath, err)
		}

		// Use the image dimensions when the set carries none.
		set := *s
		if set.Width == 0 || set.Height == 0 {
			set.Width = float64(img.Bounds().Dx())
			set.Height = float64(img.Bounds().Dy())
		}
		percent, err := set.ToPercent()
		if err != nil {
			return err
		}

		img = resizeToWidth(img, displayWidth)
		preview := drawWaypoints(img, percent)

		inName := filepath.Base(s.FilePath)
		outName := inName[0:len(inName)-len(filepath.Ext(inName))] + previewSuffix + fileExt
		return saveImage(filepath.Join(imageOutDir, outName), preview, jpegQuality)
	})
}

// drawWaypoints returns a copy of img with a marker and the ID drawn for every waypoint in p.
func drawWaypoints(img image.Image, p PercentSet) image.Image {
	dc := gg.NewContextForImage(img)
	width := float64(dc.Width())
	height := float64(dc.Height())

	for _, id := range p.IDs {
		pt := p.Points[id]
		x, y := PercentToPixel(pt.X, pt.Y, width, height)

		dc.DrawCircle(x, y, previewMarkerRadius)
		dc.SetRGB(1, 0.2, 0.2)
		dc.FillPreserve()
		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(1.5)
		dc.Stroke()

		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(id, x+previewMarkerRadius+2, y, 0, 0.5)
	}

	return dc.Image()
}
