package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeEncoder records concatenations instead of running ffmpeg.
type fakeEncoder struct {
	concatenated []string
	finalPath    string
	probeErr     error
	concatErr    error
}

func (f *fakeEncoder) Concatenate(_ context.Context, segmentPaths []string, finalPath, tmpDir string) error {
	if f.concatErr != nil {
		return f.concatErr
	}
	f.concatenated = append([]string(nil), segmentPaths...)
	f.finalPath = finalPath
	if _, err := os.Stat(tmpDir); err != nil {
		return err
	}
	return os.WriteFile(finalPath, []byte("final"), 0o644)
}

func (f *fakeEncoder) Probe(_ context.Context, _ string) (float64, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return 8, nil
}

func (f *fakeEncoder) ExtractLastFrame(_ context.Context, _, imagePath string) error {
	return os.WriteFile(imagePath, []byte("frame"), 0o644)
}

func TestNewSegmentManagerRequiresDir(t *testing.T) {
	_, err := NewSegmentManager("lake", "", &fakeEncoder{}, nil)
	assert.Error(t, err)

	_, err = NewSegmentManager("", t.TempDir(), &fakeEncoder{}, nil)
	assert.Error(t, err)
}

func TestSegmentManagerAddAndSave(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "run")
	enc := &fakeEncoder{}
	m, err := NewSegmentManager("forest_lake_video", dir, enc, nil)
	require.NoError(t, err)

	first, err := m.AddClip(ctx, []byte("base"))
	require.NoError(t, err)
	second, err := m.AddClip(ctx, []byte("boat"))
	require.NoError(t, err)
	third, err := m.AddFile(ctx, first)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "segment_01.mp4"), first)
	assert.Equal(t, filepath.Join(dir, "segment_02.mp4"), second)
	assert.Equal(t, filepath.Join(dir, "segment_03.mp4"), third)
	assert.Equal(t, []string{first, second, third}, m.Segments())

	data, err := os.ReadFile(third)
	require.NoError(t, err)
	assert.Equal(t, "base", string(data))

	out, err := m.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "forest_lake_video.mp4"), out)
	assert.Equal(t, []string{first, second, third}, enc.concatenated)
	assert.FileExists(t, out)
}

func TestSegmentManagerSaveEmpty(t *testing.T) {
	m, err := NewSegmentManager("lake", t.TempDir(), &fakeEncoder{}, nil)
	require.NoError(t, err)

	_, err = m.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoSegments)
}

func TestSegmentManagerRejectsEmptyClip(t *testing.T) {
	m, err := NewSegmentManager("lake", t.TempDir(), &fakeEncoder{}, nil)
	require.NoError(t, err)

	_, err = m.AddClip(context.Background(), nil)
	assert.Error(t, err)
	assert.Empty(t, m.Segments())
}

func TestSegmentManagerSaveMissingSegment(t *testing.T) {
	ctx := context.Background()
	m, err := NewSegmentManager("lake", t.TempDir(), &fakeEncoder{}, nil)
	require.NoError(t, err)
	p, err := m.AddClip(ctx, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(p))

	_, err = m.Save(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSegmentManagerConcatError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("ffmpeg exploded")
	m, err := NewSegmentManager("lake", t.TempDir(), &fakeEncoder{concatErr: boom}, nil)
	require.NoError(t, err)
	_, err = m.AddClip(ctx, []byte("x"))
	require.NoError(t, err)

	_, err = m.Save(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestSegmentManagerProbeFailureOnlyWarns(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m, err := NewSegmentManager("lake", t.TempDir(), &fakeEncoder{probeErr: errors.New("no ffprobe")}, zap.New(core))
	require.NoError(t, err)

	_, err = m.AddClip(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Could not probe segment duration").Len())
	assert.Equal(t, 1, logs.FilterMessage("Added segment").Len())
}

func TestLoadSegmentsAndAdopt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, name := range []string{"segment_10.mp4", "segment_02.mp4", "segment_01.mp4", "lake.mp4", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	paths, err := LoadSegments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "segment_01.mp4"),
		filepath.Join(dir, "segment_02.mp4"),
		filepath.Join(dir, "segment_10.mp4"),
	}, paths)

	m, err := NewSegmentManager("lake", dir, &fakeEncoder{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Adopt(ctx, paths))
	assert.Equal(t, paths, m.Segments())
	assert.NoFileExists(t, filepath.Join(dir, "segment_03.mp4"))
}

// concatEncoder writes the concatenated segment bytes as the final video.
type concatEncoder struct{ fakeEncoder }

func (c *concatEncoder) Concatenate(_ context.Context, segmentPaths []string, finalPath, _ string) error {
	var all []byte
	for _, p := range segmentPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		all = append(all, data...)
	}
	return os.WriteFile(finalPath, all, 0o644)
}

func TestAdoptGappedSegmentsTwice(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	files := map[string]string{"segment_01.mp4": "A", "segment_03.mp4": "C", "segment_04.mp4": "D"}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	for run := 1; run <= 2; run++ {
		paths, err := LoadSegments(dir)
		require.NoError(t, err)
		require.Len(t, paths, 3, "run %d", run)

		m, err := NewSegmentManager("lake", dir, &concatEncoder{}, nil)
		require.NoError(t, err)
		require.NoError(t, m.Adopt(ctx, paths))
		out, err := m.Save(ctx)
		require.NoError(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "ACD", string(data), "run %d", run)
	}

	for name, body := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, body, string(data), name)
	}
	assert.NoFileExists(t, filepath.Join(dir, "segment_02.mp4"))
}

func TestAdoptMissingFile(t *testing.T) {
	m, err := NewSegmentManager("lake", t.TempDir(), &fakeEncoder{}, nil)
	require.NoError(t, err)

	err = m.Adopt(context.Background(), []string{filepath.Join(t.TempDir(), "segment_01.mp4")})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, m.Segments())
}
