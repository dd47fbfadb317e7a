package waypointconv

// The intermediate waypoint representation.

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Keys for known waypoint attributes.
const (
	Confidence  = "Confidence"  // The detection confidence. Type float64 in [0, 1].
	Label       = "Label"       // The object label a waypoint was derived from. Type string.
	SourceShape = "SourceShape" // The annotation shape the waypoint was read from. Type string.
)

// Waypoint is a labelled point of interest in pixel space.
type Waypoint struct {
	Attributes map[string]interface{} // Additional attributes of this waypoint.
	Coords     Point                  // Absolute offset from the top-left corner of the image.
	ID         string
}

// WaypointSet is the intermediate representation of the waypoints on one scene image.
type WaypointSet struct {
	FilePath  string     // The scene image.
	Height    float64    // The image height in pixels, zero if unknown.
	SceneID   string     // The scene the waypoints belong to.
	Waypoints []Waypoint // The waypoints in pixel space.
	Width     float64    // The image width in pixels, zero if unknown.
}

// PercentSet holds the waypoints of a scene in percentage space, in the order of the source set.
type PercentSet struct {
	FilePath string
	Height   float64
	IDs      []string
	Points   map[string]Point
	SceneID  string
	Width    float64
}

// ToPercent converts the waypoints of s to percentage coordinates.
//
// Duplicate IDs are an error, since the result is keyed by ID.
func (s WaypointSet) ToPercent() (PercentSet, error) {
	coords := make(map[string]Point, len(s.Waypoints))
	ids := make([]string, 0, len(s.Waypoints))
	for _, w := range s.Waypoints {
		if _, dup := coords[w.ID]; dup {
			return PercentSet{}, fmt.Errorf("duplicate waypoint %q in scene %q", w.ID, s.name())
		}
		coords[w.ID] = w.Coords
		ids = append(ids, w.ID)
	}

	points, err := ConvertBatch(coords, s.Width, s.Height)
	if err != nil {
		return PercentSet{}, fmt.Errorf("scene %q: %w", s.name(), err)
	}

	return PercentSet{
		FilePath: s.FilePath,
		Height:   s.Height,
		IDs:      ids,
		Points:   points,
		SceneID:  s.SceneID,
		Width:    s.Width,
	}, nil
}

// name identifies the set in messages.
func (s WaypointSet) name() string {
	if s.SceneID != "" {
		return s.SceneID
	}
	return s.FilePath
}

// scaleCoords scales all waypoint coordinates by the given scale factors.
func (s *WaypointSet) scaleCoords(width, height float64) {
	for i := range s.Waypoints {
		s.Waypoints[i].Coords.X *= width
		s.Waypoints[i].Coords.Y *= height
	}
}

// uniqueID returns label if it is not taken yet, and otherwise label_<n> with the next n that does
// not collide with an ID returned before. seen records the returned IDs and the last n per label.
func uniqueID(seen map[string]int, label string) string {
	id := label
	for seen[id] > 0 {
		seen[label]++
		id = fmt.Sprintf("%s_%d", label, seen[label])
	}
	seen[id]++
	return id
}

// WaypointSets is the waypoint data for a list of scenes.
type WaypointSets []WaypointSet

// ToPercent converts all sets to percentage space. Any set without a usable extent fails the
// whole conversion.
func (data WaypointSets) ToPercent() ([]PercentSet, error) {
	result := make([]PercentSet, 0, len(data))
	for _, s := range data {
		p, err := s.ToPercent()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// SetDefaultExtent assigns width and height to every set that has no extent yet.
func (data WaypointSets) SetDefaultExtent(width, height float64) {
	for i := range data {
		if data[i].Width == 0 || data[i].Height == 0 {
			data[i].Width = width
			data[i].Height = height
		}
	}
}

// MapIDs replaces waypoint ID (sub-)strings with substitution values, as specified in mappings.
//
// The format of mappings is old=new.
func (data WaypointSets) MapIDs(mappings []string) error {
	if len(mappings) == 0 {
		return nil
	}

	replacements := make([]struct{ old, new string }, len(mappings))
	for i, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 || a[0] == "" {
			return fmt.Errorf("invalid mapping: %v", v)
		}

		replacements[i].old = a[0]
		replacements[i].new = a[1]
	}

	// Apply the replacements, in order, to all IDs.
	count := 0
	for _, s := range data {
		for i := range s.Waypoints {
			w := &s.Waypoints[i]

			oldID := w.ID
			for _, r := range replacements {
				w.ID = strings.ReplaceAll(w.ID, r.old, r.new)
			}

			if w.ID != oldID {
				count++
			}
		}
	}

	log.Printf("The ID mappings changed %d waypoints", count)
	return nil
}

// Filter removes waypoints whose ID is not in ids (an empty list keeps all of them) and those with
// a Confidence attribute below minConfidence. Waypoints without a confidence value pass the
// confidence filter. If requireWaypoint is true, sets left without waypoints are removed as well.
func (data *WaypointSets) Filter(ids []string, minConfidence float64, requireWaypoint bool) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	numSets := len(*data)
	numBefore, numAfter := 0, 0

	filtered := (*data)[:0]
	for _, s := range *data {
		numBefore += len(s.Waypoints)
		waypoints := s.Waypoints[:0]
		for _, w := range s.Waypoints {
			if len(keep) > 0 && !keep[w.ID] {
				continue
			}
			if c, ok := w.Attributes[Confidence].(float64); ok && c < minConfidence {
				continue
			}
			waypoints = append(waypoints, w)
		}
		s.Waypoints = waypoints
		numAfter += len(s.Waypoints)

		if requireWaypoint && len(s.Waypoints) == 0 {
			continue
		}
		filtered = append(filtered, s)
	}
	*data = filtered

	log.Printf("Filtered out %d waypoints and %d scenes", numBefore-numAfter, numSets-len(*data))
}

// Rescale maps all waypoints onto a new image extent of width x height pixels. Either side may be
// zero, in which case it is derived from the other one to keep the aspect ratio.
func (data WaypointSets) Rescale(width, height int) error {
	if width <= 0 && height <= 0 {
		return nil
	}

	for i := range data {
		s := &data[i]
		if s.Width == 0 || s.Height == 0 {
			return fmt.Errorf("cannot rescale scene %q: %w", s.name(), ErrDivisionByZero)
		}

		w, h := float64(width), float64(height)
		if width <= 0 {
			w = math.Round(h * s.Width / s.Height)
		} else if height <= 0 {
			h = math.Round(w * s.Height / s.Width)
		}

		s.scaleCoords(w/s.Width, h/s.Height)
		s.Width = w
		s.Height = h
	}

	return nil
}

// ResolveExtents reads the image dimensions for every set that has no extent yet. Relative image
// paths are resolved against imageDir.
//
// The image headers are decoded concurrently. The first error is returned.
func (data WaypointSets) ResolveExtents(imageDir string) error {
	var pending []*WaypointSet
	for i := range data {
		if data[i].Width == 0 || data[i].Height == 0 {
			pending = append(pending, &data[i])
		}
	}
	if len(pending) == 0 {
		return nil
	}
	log.Printf("Reading image dimensions for %d scenes", len(pending))

	return runWorkQueue(pending, func(s *WaypointSet) error {
		if s.FilePath == "" {
			return fmt.Errorf("scene %q has neither an image extent nor an image path", s.name())
		}
		path := resolveImagePath(imageDir, s.FilePath)
		config, _, err := decodeImageConfig(path)
		if err != nil {
			return fmt.Errorf("failed to read the image dimensions of %q: %v", path, err)
		}
		s.Width = float64(config.Width)
		s.Height = float64(config.Height)
		return nil
	})
}

// Split randomly splits the data into multiple datasets.
//
// The cumulativeSplits specify the cumulative distribution according to which the data is split
// into the returned datasets. The last value must be 100.
func (data WaypointSets) Split(cumulativeSplits []int) ([]WaypointSets, error) {
	datasets := make([]WaypointSets, len(cumulativeSplits))

	// Allocate slightly more than the expected size for each dataset.
	var sum int
	for i, s := range cumulativeSplits {
		if s < sum {
			return nil, fmt.Errorf("the split percentages must not be negative")
		}
		percent := s - sum
		datasets[i] = make(WaypointSets, 0, int(1.05*float64(percent)/100*float64(len(data))))
		sum = s
	}
	if sum != 100 {
		return nil, fmt.Errorf("the split percentages do not add up to 100")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

outer:
	for _, s := range data {
		r := rng.Intn(100)
		for i, c := range cumulativeSplits {
			if r < c {
				datasets[i] = append(datasets[i], s)
				continue outer
			}
		}
	}

	return datasets, nil
}

// runWorkQueue calls fn for every set on a bounded number of goroutines, as fn may load
// potentially large images into memory. It returns the first error reported by fn.
func runWorkQueue(sets []*WaypointSet, fn func(*WaypointSet) error) error {
	numTasks := 2 * runtime.NumCPU()
	if len(sets) < numTasks {
		numTasks = len(sets)
	}
	workQueue := make(chan *WaypointSet, 2*numTasks)
	errors := make(chan error, 1)

	trySendError := func(err error) {
		select {
		case errors <- err:
		default:
		}
	}

	var wg sync.WaitGroup
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for s := range workQueue {
				if err := fn(s); err != nil {
					trySendError(err)
				}
			}
		}()
	}

	for _, s := range sets {
		workQueue <- s
	}
	close(workQueue)
	wg.Wait()

	close(errors)
	if len(errors) > 0 {
		return <-errors
	}

	return nil
}
