package waypointconv

// Conversion between pixel and percentage coordinates.

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrDivisionByZero is returned when an image extent has a zero width or height.
var ErrDivisionByZero = errors.New("image width and height must be non-zero")

// Point is a point in either pixel or percentage space. There are no range constraints; values
// outside the image (or outside [0, 100] for percentages) are valid.
type Point struct {
	X float64
	Y float64
}

// PixelToPercent converts the pixel coordinates (pixelX, pixelY) to percentages of the image
// width and height, rounded to two decimal places.
//
// Example:
//
//	x, y, _ := PixelToPercent(250, 410, 1000, 576) // 25, 71.18
func PixelToPercent(pixelX, pixelY, imageWidth, imageHeight float64) (
	xPercent, yPercent float64, err error) {

	if err := checkExtent(imageWidth, imageHeight); err != nil {
		return 0, 0, err
	}

	return Round2(pixelX / imageWidth * 100), Round2(pixelY / imageHeight * 100), nil
}

// PercentToPixel converts percentage coordinates back to pixel coordinates for the given image
// extent. The result is not rounded.
func PercentToPixel(xPercent, yPercent, imageWidth, imageHeight float64) (pixelX, pixelY float64) {
	return xPercent / 100 * imageWidth, yPercent / 100 * imageHeight
}

// ConvertBatch converts every pixel point in coords to percentage coordinates. The returned map
// has the same keys as coords.
//
// All points share the image extent, so a zero width or height fails the whole batch and no
// partial result is returned.
func ConvertBatch(coords map[string]Point, imageWidth, imageHeight float64) (
	map[string]Point, error) {

	if err := checkExtent(imageWidth, imageHeight); err != nil {
		return nil, err
	}

	result := make(map[string]Point, len(coords))
	for id, p := range coords {
		x, y, err := PixelToPercent(p.X, p.Y, imageWidth, imageHeight)
		if err != nil {
			return nil, err
		}
		result[id] = Point{X: x, Y: y}
	}

	return result, nil
}

// Round2 rounds v to two decimal places.
//
// The result is the closest two-decimal value to the exact binary value of v, so 1.005 (stored
// as 1.00499999...) rounds down. Exact binary ties such as 0.125 round to even. NaN and ±Inf are
// returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		// Only reachable on overflow, which cannot happen for a finite v.
		return v
	}
	return r
}

func checkExtent(width, height float64) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("invalid image extent %gx%g: %w", width, height, ErrDivisionByZero)
	}
	return nil
}
