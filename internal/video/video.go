package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	ConcatCopy     = "copy"
	ConcatReencode = "reencode"
)

var ErrNoDuration = errors.New("no duration in probe output")

type VideoEncoder interface {
	Concatenate(ctx context.Context, segmentPaths []string, finalPath string, tmpDir string) error
	Probe(ctx context.Context, path string) (float64, error)
	// ExtractLastFrame writes the final frame of videoPath as a JPEG.
	ExtractLastFrame(ctx context.Context, videoPath, imagePath string) error
}

// FFmpegEncoder concatenates segments through the ffmpeg concat demuxer,
// either stream-copying or re-encoding to H.264 without audio.
type FFmpegEncoder struct {
	Mode    string // ConcatCopy or ConcatReencode
	Codec   string // libx264, h264_nvenc, h264_videotoolbox
	Quality int
}

func NewFFmpegEncoder(mode, codec string, quality int) *FFmpegEncoder {
	if mode == "" {
		mode = ConcatReencode
	}
	if codec == "" {
		codec = "libx264"
	}
	return &FFmpegEncoder{Mode: mode, Codec: codec, Quality: quality}
}

func (e *FFmpegEncoder) Concatenate(ctx context.Context, segmentPaths []string, finalPath string, tmpDir string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("nothing to concatenate")
	}

	listPath, err := writeConcatList(segmentPaths, tmpDir)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	stream := e.concatStream(listPath, finalPath)
	if err := runStream(ctx, stream); err != nil {
		return fmt.Errorf("ffmpeg concat error: %w", err)
	}
	return nil
}

func (e *FFmpegEncoder) concatStream(listPath, finalPath string) *ffmpeg.Stream {
	in := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"})
	return in.Output(finalPath, e.outputArgs()).OverWriteOutput()
}

func (e *FFmpegEncoder) outputArgs() ffmpeg.KwArgs {
	if e.Mode == ConcatCopy {
		return ffmpeg.KwArgs{"c": "copy"}
	}

	args := ffmpeg.KwArgs{
		"c:v":     e.Codec,
		"pix_fmt": "yuv420p",
		"an":      "",
	}
	// Quality depends on the encoder
	switch e.Codec {
	case "h264_videotoolbox":
		args["b:v"] = fmt.Sprintf("%dk", e.Quality*100)
	case "h264_nvenc":
		args["cq"] = strconv.Itoa(e.Quality)
	default: // libx264
		args["crf"] = strconv.Itoa(e.Quality)
		args["preset"] = "medium"
	}
	return args
}

func (e *FFmpegEncoder) ExtractLastFrame(ctx context.Context, videoPath, imagePath string) error {
	if err := os.MkdirAll(filepath.Dir(imagePath), 0o755); err != nil {
		return err
	}
	if err := runStream(ctx, lastFrameStream(videoPath, imagePath)); err != nil {
		return fmt.Errorf("extract last frame of %s: %w", videoPath, err)
	}
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("extract last frame of %s: %w", videoPath, err)
	}
	return nil
}

// lastFrameStream seeks 0.1s before the end and keeps a single frame.
func lastFrameStream(videoPath, imagePath string) *ffmpeg.Stream {
	return ffmpeg.Input(videoPath, ffmpeg.KwArgs{"sseof": "-0.1"}).
		Output(imagePath, ffmpeg.KwArgs{"frames:v": "1", "q:v": "2", "update": "1"}).
		OverWriteOutput()
}

// Probe returns the container duration of path in seconds.
func (e *FFmpegEncoder) Probe(ctx context.Context, path string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(out)
}

func parseDuration(probeJSON string) (float64, error) {
	d := gjson.Get(probeJSON, "format.duration")
	if !d.Exists() {
		// some containers only report per-stream durations
		d = gjson.Get(probeJSON, `streams.#(codec_type=="video").duration`)
	}
	if !d.Exists() {
		return 0, ErrNoDuration
	}
	return d.Float(), nil
}

// writeConcatList writes an ffmpeg concat demuxer list with absolute paths.
func writeConcatList(segmentPaths []string, tmpDir string) (string, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, p := range segmentPaths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&buf, "file '%s'\n", strings.ReplaceAll(absPath, "'", `'\''`))
	}

	listPath := filepath.Join(tmpDir, "inputs.txt")
	if err := os.WriteFile(listPath, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return listPath, nil
}

// runStream runs a compiled ffmpeg command and kills it when ctx is done.
func runStream(ctx context.Context, stream *ffmpeg.Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := stream.Compile()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w, output: %s", err, lastLines(out.String(), 20))
		}
		return nil
	}
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
