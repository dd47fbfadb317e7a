// Converts a pixel coordinate to percentage coordinates of the image width and height, for placing
// scene waypoints independently of the display size.
package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sensorable/waypointconv"
)

func main() {
	os.Exit(run(filepath.Base(os.Args[0]), os.Args[1:], os.Stdout))
}

// run converts the four positional arguments and returns the exit code. Arguments are not parsed
// as flags, so negative coordinates like -5 are accepted.
func run(prog string, args []string, stdout io.Writer) int {
	if len(args) != 4 {
		printUsage(prog, stdout)
		return 1
	}

	var values [4]float64
	for i, arg := range args {
		v, err := parseNumber(arg)
		if err != nil {
			_, _ = fmt.Fprintf(stdout, "Error: Invalid number format - %v\n", err)
			return 1
		}
		values[i] = v
	}
	pixelX, pixelY, width, height := values[0], values[1], values[2], values[3]

	xPercent, yPercent, err := waypointconv.PixelToPercent(pixelX, pixelY, width, height)
	if err != nil {
		_, _ = fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Pixel coordinates: (%s, %s)px\n", formatInt(pixelX), formatInt(pixelY))
	_, _ = fmt.Fprintf(stdout, "Image dimensions: (%spx × %spx)\n", formatInt(width), formatInt(height))
	_, _ = fmt.Fprintf(stdout, "Percentage coordinates: (%s%%, %s%%)\n",
		formatFloat(xPercent), formatFloat(yPercent))
	return 0
}

func printUsage(prog string, w io.Writer) {
	_, _ = fmt.Fprintf(w, "Usage: %s <pixel_x> <pixel_y> <image_width> <image_height>\n", prog)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Example:")
	_, _ = fmt.Fprintf(w, "  %s 250 410 1000 576\n", prog)
	_, _ = fmt.Fprintln(w, "  # Output: (25.0%, 71.18%)")
}

// parseNumber parses s as a float64. Values too large for a float64 become ±Inf rather than an
// error.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("could not convert string to float: %q", s)
	}
	return v, nil
}

// formatInt formats v truncated toward zero.
func formatInt(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatFloat(v)
	}
	t := math.Trunc(v)
	if t == 0 {
		t = 0 // No "-0".
	}
	return strconv.FormatFloat(t, 'f', 0, 64)
}

// formatFloat formats v in its shortest form, keeping a ".0" on integral values. Magnitudes of at
// least 1e16 or below 1e-4 use exponent notation with a two-digit minimum exponent (1e+22, 1e-05).
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if abs := math.Abs(v); abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
