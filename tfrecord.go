package waypointconv

// TFRecord waypoint export.

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// toTFFeatures converts the waypoints of a single scene to a feature map. Waypoint positions are
// stored as ratios of the image width and height.
func toTFFeatures(set WaypointSet, imageDir string) (TFFeatureMap, error) {
	if set.Width == 0 || set.Height == 0 {
		return nil, fmt.Errorf("scene %q: %w", set.name(), ErrDivisionByZero)
	}

	imagePath := resolveImagePath(imageDir, set.FilePath)
	_, format, err := decodeImageConfig(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %v", err)
	}
	imgData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	sourceID := set.SceneID
	if sourceID == "" {
		sourceID = set.FilePath
	}

	f := make(TFFeatureMap, 12)
	f["image/height"] = int(set.Height)
	f["image/width"] = int(set.Width)
	f["image/filename"] = set.FilePath
	f["image/source_id"] = sourceID
	f["image/encoded"] = imgData
	f["image/format"] = format

	n := len(set.Waypoints)
	ids := make([]string, n)
	xs := make([]float32, n)
	ys := make([]float32, n)
	for i, w := range set.Waypoints {
		ids[i] = w.ID
		xs[i] = float32(w.Coords.X / set.Width)
		ys[i] = float32(w.Coords.Y / set.Height)
	}
	f["image/waypoint/id"] = ids
	f["image/waypoint/x"] = xs
	f["image/waypoint/y"] = ys

	return f, nil
}

// WriteCustomTFRecord works like WriteTFRecord, except that it allows for the TFFeatureMap to be
// customised.
//
// Before generating a tensorflow.Example from each WaypointSet and writing it to the TFRecord file,
// the source data and the default TFFeatureMap are passed to customiseFeature, which may modify the
// feature map to its liking, as long as all of its values can be converted to tensorflow.Feature.
func WriteCustomTFRecord(recordFilePath, imageDir string, data []WaypointSet, numShards int,
	customiseFeature func(s WaypointSet, m TFFeatureMap)) (written int, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if len(data) == 0 {
		return 0, nil
	}
	if numShards <= 0 {
		numShards = 1
	}
	if numShards > len(data) {
		numShards = len(data)
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()
	shardIdx := -1

	// Convert and serialise one set at a time. Scene i goes to shard i*numShards/len(data), so
	// every shard receives at least one scene.
	for i, set := range data {
		// Check if a new shard file needs to be opened for writing.
		if idx := i * numShards / len(data); idx != shardIdx {
			shardIdx = idx

			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return written, err
				}
				shardFile = nil
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return written, fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFFeatures(set, imageDir)
		if err != nil {
			log.Printf("Failed to convert %q, skipping it: %v", set.name(), err)
			continue
		}
		if customiseFeature != nil {
			customiseFeature(set, features)
		}
		tfExample := example.New(features)

		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			return written, fmt.Errorf("failed to write example for %q: %v", set.name(), err)
		}
		written++
	}

	return written, nil
}

// WriteTFRecord does a streaming conversion, serialisation and file write of the waypoint data to
// one or more TFRecord files stored under recordFilePath (with suffixes added when numShards>1).
// The scene images are embedded; relative image paths are resolved against imageDir.
//
// Scenes that cannot be converted, e.g. because their image is missing, are logged and skipped.
// Returns the number of scenes written.
func WriteTFRecord(recordFilePath, imageDir string, data []WaypointSet, numShards int) (
	int, error) {

	return WriteCustomTFRecord(recordFilePath, imageDir, data, numShards, nil)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}
