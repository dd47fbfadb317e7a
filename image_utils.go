package waypointconv

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// resizeToWidth resamples the image to the given width, keeping the aspect ratio. A width of zero
// or the current width returns img unchanged.
func resizeToWidth(img image.Image, width int) image.Image {
	imgWidth := img.Bounds().Dx()
	if width <= 0 || width == imgWidth || imgWidth == 0 {
		return img
	}

	// Select the filter based on the direction of the rescaling operation.
	filter := imaging.Linear
	if width < imgWidth {
		filter = imaging.Box
	}

	scale := float64(width) / float64(imgWidth)
	height := int(math.Round(float64(img.Bounds().Dy()) * scale))
	return imaging.Resize(img, width, height, filter)
}

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// loadImage reads and decodes the image at path.
func loadImage(path string) (image.Image, error) {
	return imaging.Open(path)
}

// saveImage saves the image to path, encoding it as PNG or JPG, depending on the file extension of
// path.
func saveImage(path string, img image.Image, jpegQuality int) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("cannot write image %q: %v", path, err)
	}
	return nil
}

// imageFileExt returns the file extension for the requested output encoding.
func imageFileExt(encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "jpg", "jpeg":
		return ".jpg", nil
	case "png":
		return ".png", nil
	}
	return "", fmt.Errorf("unsupported output encoding %q", encoding)
}

// resolveImagePath joins path to imageDir unless it is absolute or imageDir is empty.
func resolveImagePath(imageDir, path string) string {
	if imageDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(imageDir, path)
}
