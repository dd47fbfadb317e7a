package waypointconv

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// sceneFile pairs a label file with the scene image of the same base name.
type sceneFile struct {
	SceneID   string // The base name shared by the label file and the image.
	LabelPath string
	ImagePath string
}

// sceneName returns the base name of path without its extension.
func sceneName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// listFiles returns the paths of the regular files and symlinks directly in dir whose names end
// with suffix, in lexical order.
func listFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %v", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		mode := e.Type()
		if (!mode.IsRegular() && mode&fs.ModeSymlink == 0) || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// matchSceneImages pairs every label file in labelDir ending in labelExt with the image in imageDir
// of the same base name. Label files without an image are logged and skipped. Files in imageDir
// ending in labelExt are never taken for images, so both directories may be the same.
func matchSceneImages(labelDir, labelExt, imageDir string) ([]sceneFile, error) {
	labelPaths, err := listFiles(labelDir, labelExt)
	if err != nil {
		return nil, err
	}
	imagePaths, err := listFiles(imageDir, "")
	if err != nil {
		return nil, err
	}

	images := make(map[string]string, len(imagePaths))
	for _, p := range imagePaths {
		if filepath.Ext(p) == "" || (labelExt != "" && strings.HasSuffix(p, labelExt)) {
			continue
		}
		images[sceneName(p)] = p
	}

	scenes := make([]sceneFile, 0, len(labelPaths))
	for _, p := range labelPaths {
		id := sceneName(p)
		imagePath, found := images[id]
		if !found {
			log.Printf("No scene image for %q, skipping it", p)
			continue
		}
		scenes = append(scenes, sceneFile{SceneID: id, LabelPath: p, ImagePath: imagePath})
	}
	return scenes, nil
}

// sceneParserFn reads the waypoints of the label file of f into set. The scene ID and image path
// of set are already filled in.
type sceneParserFn func(f sceneFile, set *WaypointSet) error

// readScenes parses the label files in labelDir that have a matching scene image in imageDir.
// Every set is named after its label file and refers to its image by file name, relative to
// imageDir. Scenes that fail to parse are logged and skipped.
func readScenes(labelDir, labelExt, imageDir string, parse sceneParserFn) ([]WaypointSet, error) {
	scenes, err := matchSceneImages(labelDir, labelExt, imageDir)
	if err != nil {
		return nil, err
	}
	log.Printf("Parsing waypoints for %d scenes", len(scenes))

	data := make([]WaypointSet, 0, len(scenes))
	for _, f := range scenes {
		set := WaypointSet{FilePath: filepath.Base(f.ImagePath), SceneID: f.SceneID}
		if err := parse(f, &set); err != nil {
			log.Printf("Failed to parse scene %q, skipping it: %v", f.LabelPath, err)
			continue
		}
		data = append(data, set)
	}
	return data, nil
}

// writeFile writes data to path, creating or truncating it.
func writeFile(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot write file %q: %v", path, err)
	}
	defer closeWithErrCheck(f, &err)

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("cannot write file %q: %v", path, err)
	}
	return nil
}

// closeWithErrCheck closes c and stores the error in *e unless *e already holds one.
func closeWithErrCheck(c io.Closer, e *error) {
	if err := c.Close(); err != nil && *e == nil {
		*e = err
	}
}
