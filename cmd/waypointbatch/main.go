// Converts scene waypoints between scene documents, Sloth, VGG Image Annotator, KITTI, AWS
// detect-labels and TFRecord, producing percentage coordinates for scene documents.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sensorable/waypointconv"
)

// options holds the validated command line arguments.
type options struct {
	convertFrom format // The source format.
	convertTo   format // The target format.

	imageDirPath       string   // The directory that relative image paths are resolved against.
	labelFileOrDirPath string   // The input file or directory, depending on the format.
	labelOutPaths      []string // The output files, one per split.
	labelOutSplits     []int    // The cumulative split percentages for the output datasets.
	numShardFiles      int      // The number of shard files to create.

	defaultWidth  float64 // The image width for scenes without an extent.
	defaultHeight float64 // The image height for scenes without an extent.
	rescaleWidth  int     // The image width to rescale waypoints to.
	rescaleHeight int     // The image height to rescale waypoints to.

	idMappings      string  // A comma-separated string of ID mappings.
	filterIDs       string  // A comma-separated string of waypoint IDs to keep (empty keeps all).
	filterExpr      string  // A Lua guard expression waypoints must satisfy.
	minConfidence   float64 // The min. confidence value.
	requireWaypoint bool    // Filter out scenes with no waypoints (after other filters).

	previewOutDirPath string // The output directory for preview images.
	previewWidth      int    // The display width for preview images.
	imageOutEncoding  string // The file type for preview images.
	imageJPEGQuality  int    // The JPEG quality for JPEG previews.
}

type format int

// The known waypoint formats.
const (
	Unknown format = iota // If an unknown format is specified.
	AWSDetectLabels
	Kitti
	Scene
	Sloth
	TFRecord
	VIA // VGG Image Annotator
)

func formatFrom(s string) format {
	switch s {
	case "aws-dl":
		return AWSDetectLabels
	case "kitti":
		return Kitti
	case "scene":
		return Scene
	case "sloth":
		return Sloth
	case "tfrecord":
		return TFRecord
	case "via":
		return VIA
	}
	return Unknown
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}

// run parses the arguments and performs the conversion. Usage information is written to
// usageOut when the arguments are invalid.
func run(args []string, usageOut io.Writer) error {
	o, err := parseFlags(args, usageOut)
	if err != nil {
		return err
	}
	return convert(o)
}

// parseFlags parses and validates the command line arguments.
func parseFlags(args []string, usageOut io.Writer) (options, error) {
	fs := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	fs.SetOutput(usageOut)
	fs.Usage = func() {
		w := fs.Output()
		_, _ = fmt.Fprintf(w, "Usage of %s:\n", fs.Name())
		_, _ = fmt.Fprintln(w, "  aws-dl input options:\t\t-labels <dir> -images <dir>")
		_, _ = fmt.Fprintln(w, "  kitti input options:\t\t-labels <dir> -images <dir>")
		_, _ = fmt.Fprintln(w, "  scene input options:\t\t-labels <file> [-images <dir>]")
		_, _ = fmt.Fprintln(w, "  scene output options:\t\t-labels-out <file[,...]> [-split]")
		_, _ = fmt.Fprintln(w, "  sloth input options:\t\t-labels <file> [-images <dir>]")
		_, _ = fmt.Fprintln(w, "  sloth output options:\t\t-labels-out <file[,...]> [-split]")
		_, _ = fmt.Fprintln(w,
			"  tfrecord output options:\t-labels-out <file[,...]> [-split] [-num-shards]")
		_, _ = fmt.Fprintln(w, "  via input options:\t\t-labels <file> [-images <dir>]")
		_, _ = fmt.Fprintln(w, "  via output options:\t\t-labels-out <file[,...]> [-split]")
		_, _ = fmt.Fprintln(w)
		fs.PrintDefaults()
	}

	usageError := func(msg ...interface{}) (options, error) {
		fs.Usage()
		return options{}, errors.New(fmt.Sprint(msg...))
	}

	var o options

	// Format arguments.
	from := fs.String("from", "", "The source `format` {aws-dl, kitti, scene, sloth, via}")
	to := fs.String("to", "", "The target `format` {scene, sloth, tfrecord, via}")

	// Path arguments.
	fs.StringVar(&o.imageDirPath, "images", "",
		"The `path` to the scene image directory")
	fs.StringVar(&o.labelFileOrDirPath, "labels", "",
		"The `path` to the input file (scene, sloth, via) or directory (aws-dl, kitti)")
	outPaths := fs.String("labels-out", "",
		"The comma-separated `path[,...]` to the output files; one path per value in flag -split")
	outSplits := fs.String("split", "100",
		"The comma-separated output split percentages (`percent[,...]`) to randomly divide scenes"+
			" into; must add up to 100")
	fs.IntVar(&o.numShardFiles, "num-shards", 1,
		"The number of shard files to create (tfrecord only)")

	// Extent arguments.
	fs.Float64Var(&o.defaultWidth, "width", 0,
		"The image width in `pixels` for scenes without an extent (instead of reading the image)")
	fs.Float64Var(&o.defaultHeight, "height", 0,
		"The image height in `pixels` for scenes without an extent (instead of reading the image)")
	fs.IntVar(&o.rescaleWidth, "rescale-width", 0,
		"Map waypoints onto an image of this width in `pixels` (zero keeps the aspect ratio)")
	fs.IntVar(&o.rescaleHeight, "rescale-height", 0,
		"Map waypoints onto an image of this height in `pixels` (zero keeps the aspect ratio)")

	// Transformation and filter arguments.
	fs.StringVar(&o.idMappings, "map-ids", "",
		"Comma-separated list of old=new waypoint ID (sub-)string replacements")
	fs.StringVar(&o.filterIDs, "filter-ids", "",
		"Comma-separated list of waypoint IDs to keep (after map-ids; empty string keeps all)")
	fs.StringVar(&o.filterExpr, "filter-expr", "",
		"A Lua `expression` over id, x, y, width, height and scene; waypoints for which it is"+
			" false are removed")
	fs.Float64Var(&o.minConfidence, "min-confidence", 0,
		"The minimum confidence value to keep a waypoint; range [0.0, 1.0)")
	fs.BoolVar(&o.requireWaypoint, "require-waypoint", false,
		"Require at least one waypoint (after filters) to keep the scene")

	// Preview arguments.
	fs.StringVar(&o.previewOutDirPath, "preview-out", "",
		"The `path` to an output directory for waypoint preview images (empty disables previews)")
	fs.IntVar(&o.previewWidth, "preview-width", 0,
		"The display width in `pixels` for previews (zero keeps the image size)")
	fs.StringVar(&o.imageOutEncoding, "image-enc", "jpg",
		"The `encoding` for preview images {jpg, png}")
	fs.IntVar(&o.imageJPEGQuality, "jpeg-quality", 90,
		"The quality to use when encoding JPEGs [1, 100]")

	// Parse and validate flags.
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	o.convertFrom = formatFrom(*from)
	o.convertTo = formatFrom(*to)

	// Validate the conversion direction.
	switch o.convertFrom {
	case AWSDetectLabels, Kitti, Scene, Sloth, VIA:
	default:
		return usageError("Unsupported input format")
	}
	switch o.convertTo {
	case Scene, Sloth, TFRecord, VIA:
	default:
		return usageError("Unsupported output format")
	}

	// Validate path arguments.
	if o.labelFileOrDirPath == "" ||
		((o.convertFrom == Kitti || o.convertFrom == AWSDetectLabels) && o.imageDirPath == "") {
		return usageError("Missing label or image input path argument")
	}
	if *outPaths == "" {
		return usageError("Missing label output path argument")
	}

	// Validate output split arguments.
	o.labelOutPaths = strings.Split(*outPaths, ",")
	splits := strings.Split(*outSplits, ",")
	if len(splits) != len(o.labelOutPaths) {
		return usageError("The number of output datasets defined by -split and the number of" +
			" output paths in -labels-out must match")
	}
	var splitSum int
	for _, v := range splits {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return usageError("Invalid value in -split: ", v)
		}
		splitSum += i
		o.labelOutSplits = append(o.labelOutSplits, splitSum)
	}
	if splitSum != 100 {
		return usageError("The values in -split must add up to 100%")
	}

	if o.minConfidence < 0 || o.minConfidence >= 1 {
		return usageError("Invalid -min-confidence, must be in [0.0, 1.0): ", o.minConfidence)
	}

	// Validate extent arguments.
	if o.defaultWidth < 0 || o.defaultHeight < 0 ||
		(o.defaultWidth == 0) != (o.defaultHeight == 0) {
		return usageError("Invalid -width and -height, both must be given and positive")
	}
	if o.rescaleWidth < 0 || o.rescaleHeight < 0 {
		return usageError("Invalid rescale dimensions")
	}

	// Validate preview arguments.
	if o.previewWidth < 0 {
		return usageError("Invalid -preview-width")
	}
	if o.imageJPEGQuality < 1 || o.imageJPEGQuality > 100 {
		o.imageJPEGQuality = 92
		log.Print("Invalid JPEG quality, setting it to ", o.imageJPEGQuality)
	}

	// Clean path arguments.
	if o.imageDirPath != "" {
		o.imageDirPath = filepath.Clean(o.imageDirPath)
	}
	if o.previewOutDirPath != "" {
		o.previewOutDirPath = filepath.Clean(o.previewOutDirPath)
		if o.previewOutDirPath == o.imageDirPath {
			return usageError("The image input and preview output paths cannot be identical")
		}
	}
	o.labelFileOrDirPath = filepath.Clean(o.labelFileOrDirPath)
	for i, p := range o.labelOutPaths {
		o.labelOutPaths[i] = filepath.Clean(p)
		if o.labelFileOrDirPath == o.labelOutPaths[i] {
			return usageError("The label input and output paths cannot be identical")
		}
	}

	return o, nil
}

// needsExtents reports whether the image extents must be known. Sloth and VIA keep pixel
// coordinates, so they only need them for rescaling and filter expressions.
func (o options) needsExtents() bool {
	return o.convertTo == Scene || o.convertTo == TFRecord || o.rescaleWidth > 0 ||
		o.rescaleHeight > 0 || o.filterExpr != ""
}

// convert reads, transforms and writes the waypoints as specified by o.
func convert(o options) error {
	// Parse input.
	var data []waypointconv.WaypointSet
	var err error
	switch o.convertFrom {
	case AWSDetectLabels:
		data, err = waypointconv.FromAWSDetectLabels(o.labelFileOrDirPath, o.imageDirPath)
	case Kitti:
		data, err = waypointconv.FromKitti(o.labelFileOrDirPath, o.imageDirPath)
	case Scene:
		data, err = waypointconv.FromScenes(o.labelFileOrDirPath)
	case Sloth:
		data, err = waypointconv.FromSloth(o.labelFileOrDirPath)
	case VIA:
		data, err = waypointconv.FromVIA(o.labelFileOrDirPath)
	default:
		err = fmt.Errorf("unsupported input format")
	}
	if err != nil {
		return fmt.Errorf("failed to parse the input: %v", err)
	}

	sets := waypointconv.WaypointSets(data)

	// Determine image extents.
	if o.defaultWidth > 0 {
		sets.SetDefaultExtent(o.defaultWidth, o.defaultHeight)
	}
	if o.needsExtents() {
		if err := sets.ResolveExtents(o.imageDirPath); err != nil {
			return fmt.Errorf("failed to determine the image dimensions: %v", err)
		}
	}

	// Map IDs.
	if len(o.idMappings) > 0 {
		if err := sets.MapIDs(strings.Split(o.idMappings, ",")); err != nil {
			return fmt.Errorf("failed to map waypoint IDs: %v", err)
		}
	}

	// Apply filters. The expression sees the mapped IDs.
	var ids []string
	if o.filterIDs != "" {
		ids = strings.Split(o.filterIDs, ",")
	}
	if err := sets.FilterExpr(o.filterExpr); err != nil {
		return fmt.Errorf("failed to filter waypoints: %v", err)
	}
	sets.Filter(ids, o.minConfidence, o.requireWaypoint)

	// Render previews before rescaling, while the waypoints still match the source images.
	if o.previewOutDirPath != "" {
		err = sets.RenderPreviews(o.imageDirPath, o.previewOutDirPath, o.previewWidth,
			o.imageOutEncoding, o.imageJPEGQuality)
		if err != nil {
			return fmt.Errorf("preview rendering failed: %v", err)
		}
	}

	if err := sets.Rescale(o.rescaleWidth, o.rescaleHeight); err != nil {
		return fmt.Errorf("failed to rescale waypoints: %v", err)
	}

	// Split data into output datasets.
	datasets := []waypointconv.WaypointSets{sets}
	if len(o.labelOutSplits) > 1 {
		if datasets, err = sets.Split(o.labelOutSplits); err != nil {
			return fmt.Errorf("failed to split the dataset: %v", err)
		}
	}

	// Write the output.
	for i, d := range datasets {
		written, err := write(o, d, o.labelOutPaths[i])
		if err != nil {
			return fmt.Errorf("conversion failed: %v", err)
		}
		log.Printf("Successfully wrote waypoints for %d of %d scenes to %s", written, len(d),
			o.labelOutPaths[i])
	}

	return nil
}

// write converts the data to the output format and writes it to path. Returns the number of
// scenes written.
func write(o options, data waypointconv.WaypointSets, path string) (int, error) {
	switch o.convertTo {
	case Scene:
		doc, err := waypointconv.ToScenes(data)
		if err != nil {
			return 0, err
		}
		return len(doc.SceneWaypoints), waypointconv.WriteScenes(path, doc)
	case Sloth:
		return len(data), waypointconv.WriteSloth(path, waypointconv.ToSloth(data))
	case TFRecord:
		return waypointconv.WriteTFRecord(path, o.imageDirPath, data, o.numShardFiles)
	case VIA:
		return len(data), waypointconv.WriteVIA(path, waypointconv.ToVIA(data))
	}
	return 0, fmt.Errorf("unsupported output format")
}
