package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultOutputRoot = "videos"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
	APIKey    string `yaml:"api_key"`
	Backend   string `yaml:"backend"` // vertex | gemini

	OutputDir string `yaml:"output_dir"` // empty: videos/<video_name>/<YYYY-MM-DD-HH-MM>

	ImageModel     string        `yaml:"image_model"`
	VideoModel     string        `yaml:"video_model"`
	AspectRatio    string        `yaml:"aspect_ratio"`
	SegmentSeconds int           `yaml:"segment_seconds"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	LoopLastFrame  bool          `yaml:"loop_last_frame"`
	Chain          bool          `yaml:"chain"`      // seed each clip with the previous clip's last frame
	Resolution     string        `yaml:"resolution"` // empty (model default), 720p or 1080p
	NegativePrompt string        `yaml:"negative_prompt"`

	ConcatMode   string `yaml:"concat_mode"`   // reencode | copy
	VideoEncoder string `yaml:"video_encoder"` // empty or "auto": probe ffmpeg
	Quality      int    `yaml:"quality"`

	MinFreeSpaceMB int    `yaml:"min_free_space_mb"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	ShowStats      bool   `yaml:"show_stats"`

	BuildVersion string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Location:       "us-central1",
		Backend:        "vertex",
		ImageModel:     "imagen-3.0-generate-002",
		VideoModel:     "veo-2.0-generate-001",
		AspectRatio:    "16:9",
		SegmentSeconds: 8,
		PollInterval:   10 * time.Second,
		LoopLastFrame:  true,
		ConcatMode:     "reencode",
		VideoEncoder:   "auto",
		Quality:        23,
		MinFreeSpaceMB: 500,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load builds a config from defaults, the optional YAML file at path, a .env
// file in the working directory and the process environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("PROJECT_ID", &c.ProjectID)
	str("LOCATION", &c.Location)
	str("GEMINI_API_KEY", &c.APIKey)
	str("OUTPUT_DIR", &c.OutputDir)
	str("BGVIDEO_BACKEND", &c.Backend)
	str("BGVIDEO_IMAGE_MODEL", &c.ImageModel)
	str("BGVIDEO_VIDEO_MODEL", &c.VideoModel)
	str("BGVIDEO_ASPECT_RATIO", &c.AspectRatio)
	str("BGVIDEO_NEGATIVE_PROMPT", &c.NegativePrompt)
	str("BGVIDEO_RESOLUTION", &c.Resolution)
	str("BGVIDEO_CONCAT_MODE", &c.ConcatMode)
	str("BGVIDEO_VIDEO_ENCODER", &c.VideoEncoder)
	str("BGVIDEO_LOG_LEVEL", &c.LogLevel)
	str("BGVIDEO_LOG_FORMAT", &c.LogFormat)
	num("BGVIDEO_SEGMENT_SECONDS", &c.SegmentSeconds)
	num("BGVIDEO_QUALITY", &c.Quality)
	num("BGVIDEO_MIN_FREE_MB", &c.MinFreeSpaceMB)
	flag("BGVIDEO_LOOP_LAST_FRAME", &c.LoopLastFrame)
	flag("BGVIDEO_SHOW_STATS", &c.ShowStats)
	flag("BGVIDEO_CHAIN", &c.Chain)

	if v, ok := lookup("BGVIDEO_POLL_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BGVIDEO_POLL_INTERVAL: %w", err))
		} else {
			c.PollInterval = d
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Validate reports settings that cannot produce a video.
func (c *Config) Validate() error {
	var problems []string

	switch c.Backend {
	case "vertex":
		if c.ProjectID == "" {
			problems = append(problems, "vertex backend needs PROJECT_ID")
		}
		if c.Location == "" {
			problems = append(problems, "vertex backend needs LOCATION")
		}
	case "gemini":
		if c.APIKey == "" {
			problems = append(problems, "gemini backend needs GEMINI_API_KEY")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown backend %q", c.Backend))
	}

	if c.SegmentSeconds <= 0 {
		problems = append(problems, fmt.Sprintf("segment_seconds must be positive, got %d", c.SegmentSeconds))
	}
	if c.PollInterval <= 0 {
		problems = append(problems, fmt.Sprintf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.ConcatMode != "reencode" && c.ConcatMode != "copy" {
		problems = append(problems, fmt.Sprintf("unknown concat_mode %q", c.ConcatMode))
	}
	if c.Quality < 0 {
		problems = append(problems, fmt.Sprintf("quality must not be negative, got %d", c.Quality))
	}
	switch c.Resolution {
	case "", "720p", "1080p":
	default:
		problems = append(problems, fmt.Sprintf("resolution must be 720p or 1080p, got %q", c.Resolution))
	}
	if _, _, ok := strings.Cut(c.AspectRatio, ":"); !ok {
		problems = append(problems, fmt.Sprintf("aspect_ratio must look like 16:9, got %q", c.AspectRatio))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ResolveOutputDir returns OutputDir, or videos/<videoName>/<YYYY-MM-DD-HH-MM>
// when it is empty.
func (c *Config) ResolveOutputDir(videoName string, now time.Time) string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(DefaultOutputRoot, videoName, now.Format("2006-01-02-15-04"))
}

// AutoEncoder reports whether the encoder should be probed at run time.
func (c *Config) AutoEncoder() bool {
	return c.VideoEncoder == "" || c.VideoEncoder == "auto"
}
