package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/bgvideo/internal/config"
	"github.com/ivlev/bgvideo/internal/synth"
	"github.com/ivlev/bgvideo/internal/system"
	"github.com/ivlev/bgvideo/internal/video"
)

// generators bundles the remote capabilities used by generate.
type generators struct {
	images synth.ImageGenerator
	videos synth.VideoGenerator
}

type app struct {
	version    string
	configPath string
	outputDir  string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *zap.Logger

	newGenerators func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*generators, error)
	newEncoder    func(cfg *config.Config) video.VideoEncoder
}

func newApp(version string) *app {
	return &app{
		version:       version,
		newGenerators: genAIGenerators,
		newEncoder:    ffmpegEncoder,
	}
}

func genAIGenerators(ctx context.Context, cfg *config.Config, log *zap.Logger) (*generators, error) {
	client, err := synth.NewGenAIClient(ctx, synth.GenAIOptions{
		Backend:    cfg.Backend,
		ProjectID:  cfg.ProjectID,
		Location:   cfg.Location,
		APIKey:     cfg.APIKey,
		ImageModel: cfg.ImageModel,
		VideoModel: cfg.VideoModel,
	}, log)
	if err != nil {
		return nil, err
	}
	return &generators{images: client, videos: client}, nil
}

func ffmpegEncoder(cfg *config.Config) video.VideoEncoder {
	codec := cfg.VideoEncoder
	if cfg.AutoEncoder() {
		codec = system.GetBestH264Encoder()
	}
	return video.NewFFmpegEncoder(cfg.ConcatMode, codec, cfg.Quality)
}

// Execute runs the bgvideo command line.
func Execute(ctx context.Context, version string) error {
	return newApp(version).rootCommand().ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bgvideo",
		Short:         "Generate looping background videos with Imagen and Veo",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVarP(&a.outputDir, "output-dir", "o", "", "output directory (default videos/<video_name>/<timestamp>)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "console or json")

	root.AddCommand(
		a.generateCommand(),
		a.validateCommand(),
		a.initCommand(),
		a.concatCommand(),
	)
	return root
}

// setup loads the config and applies flag overrides, then builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.BuildVersion = a.version
	if a.outputDir != "" {
		cfg.OutputDir = a.outputDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}

	log, err := system.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}
