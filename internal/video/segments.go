package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/ivlev/bgvideo/internal/system"
)

var ErrNoSegments = errors.New("no segments have been added")

var segmentName = regexp.MustCompile(`^segment_(\d+)\.mp4$`)

// SegmentPath returns the on-disk name of the n-th segment (1-based).
func SegmentPath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("segment_%02d.mp4", n))
}

// SegmentManager persists clips as segment_NN.mp4 as soon as they are added
// and concatenates them into <name>.mp4 on Save.
type SegmentManager struct {
	name      string
	outputDir string
	encoder   VideoEncoder
	log       *zap.Logger
	segments  []string
}

func NewSegmentManager(name, outputDir string, enc VideoEncoder, log *zap.Logger) (*SegmentManager, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output dir must be provided")
	}
	if name == "" {
		return nil, fmt.Errorf("video name must be provided")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("Initialized segment manager", zap.String("video", name), zap.String("dir", outputDir))
	return &SegmentManager{name: name, outputDir: outputDir, encoder: enc, log: log}, nil
}

// AddClip writes clip bytes as the next segment.
func (m *SegmentManager) AddClip(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("segment %02d: empty clip", len(m.segments)+1)
	}
	dest := m.nextPath()
	if err := system.WriteBytes(dest, data); err != nil {
		return "", err
	}
	m.log.Info("Saved segment", zap.Int("segment", len(m.segments)+1), zap.String("path", dest))
	return m.add(ctx, dest), nil
}

// AddFile copies an existing clip file as the next segment. The copy is
// skipped when src already is the destination.
func (m *SegmentManager) AddFile(ctx context.Context, src string) (string, error) {
	dest := m.nextPath()
	copied, err := system.CopyFile(src, dest)
	if err != nil {
		return "", fmt.Errorf("segment %02d: %w", len(m.segments)+1, err)
	}
	if copied {
		m.log.Info("Copied segment", zap.Int("segment", len(m.segments)+1), zap.String("from", src), zap.String("to", dest))
	} else {
		m.log.Info("Segment already at destination, skipping copy", zap.Int("segment", len(m.segments)+1), zap.String("path", dest))
	}
	return m.add(ctx, dest), nil
}

func (m *SegmentManager) nextPath() string {
	return SegmentPath(m.outputDir, len(m.segments)+1)
}

func (m *SegmentManager) add(ctx context.Context, path string) string {
	m.segments = append(m.segments, path)
	fields := []zap.Field{zap.Int("segment", len(m.segments)), zap.String("video", m.name)}
	if m.encoder != nil {
		if d, err := m.encoder.Probe(ctx, path); err != nil {
			m.log.Warn("Could not probe segment duration", zap.String("path", path), zap.Error(err))
		} else {
			fields = append(fields, zap.Float64("duration", d))
		}
	}
	m.log.Info("Added segment", fields...)
	return path
}

// Segments returns the segment paths in the order they were added.
func (m *SegmentManager) Segments() []string {
	return append([]string(nil), m.segments...)
}

// OutputPath is where Save writes the final video.
func (m *SegmentManager) OutputPath() string {
	return filepath.Join(m.outputDir, m.name+".mp4")
}

// Save concatenates all segments in order and returns the final path.
func (m *SegmentManager) Save(ctx context.Context) (string, error) {
	if len(m.segments) == 0 {
		return "", ErrNoSegments
	}
	if m.encoder == nil {
		return "", fmt.Errorf("no encoder configured")
	}
	for _, p := range m.segments {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("segment %s is missing: %w", p, err)
		}
	}

	out := m.OutputPath()
	m.log.Info("Saving video", zap.String("video", m.name), zap.Int("segments", len(m.segments)), zap.String("output", out))

	tmpDir, err := os.MkdirTemp(m.outputDir, ".concat-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	if err := m.encoder.Concatenate(ctx, m.segments, out, tmpDir); err != nil {
		return "", err
	}

	m.log.Info("Successfully saved video", zap.String("output", out))
	return out, nil
}

// LoadSegments returns the segment_NN.mp4 files already in dir, ordered by
// their number.
func LoadSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := segmentName.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.path
	}
	return paths, nil
}

// Adopt registers files already on disk as segments, in order, without
// copying them. Used to rebuild the final video after an interrupted run.
func (m *SegmentManager) Adopt(ctx context.Context, paths []string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("adopt segment: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("adopt segment: %s is a directory", p)
		}
		m.add(ctx, p)
	}
	return nil
}
