package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ivlev/bgvideo/internal/config"
	"github.com/ivlev/bgvideo/internal/director"
	"github.com/ivlev/bgvideo/internal/source"
	"github.com/ivlev/bgvideo/internal/synth"
	"github.com/ivlev/bgvideo/internal/system"
	"github.com/ivlev/bgvideo/internal/video"
)

// BaseImageName is the file the base still is saved to in the output dir.
const BaseImageName = "image_1.jpg"

// sourceDPI is used when the base image comes from a PDF page.
const sourceDPI = 150

// VideoProject generates every segment of a scenario and assembles them.
type VideoProject struct {
	Config   *config.Config
	Scenario *director.Scenario
	Director *director.Director
	Images   synth.ImageGenerator
	Videos   synth.VideoGenerator
	Encoder  video.VideoEncoder

	// Source replaces image synthesis with a local image or PDF page.
	Source     source.Source
	SourcePage int

	poller *synth.Poller
	log    *zap.Logger
	clips  *cache.Cache
	now    func() time.Time
	stats  Stats
}

func NewVideoProject(cfg *config.Config, sc *director.Scenario, images synth.ImageGenerator, videos synth.VideoGenerator, enc video.VideoEncoder, log *zap.Logger) *VideoProject {
	if log == nil {
		log = zap.NewNop()
	}
	return &VideoProject{
		Config:   cfg,
		Scenario: sc,
		Director: director.NewDirector(),
		Images:   images,
		Videos:   videos,
		Encoder:  enc,
		poller:   synth.NewPoller(cfg.PollInterval, log),
		log:      log,
		clips:    cache.New(cache.NoExpiration, 0),
		now:      time.Now,
	}
}

// Run writes image_1.jpg, segment_NN.mp4 and <video_name>.mp4 into the
// output dir and returns the final video path.
func (p *VideoProject) Run(ctx context.Context) (string, error) {
	startTime := p.now()
	p.stats = Stats{Segments: p.Scenario.Length}
	p.clips.Flush()

	plans, err := p.Director.Plan(p.Scenario)
	if err != nil {
		return "", err
	}
	if p.Config.Chain && p.Encoder == nil {
		return "", fmt.Errorf("chain mode needs an encoder to extract frames")
	}

	outDir := p.Config.ResolveOutputDir(p.Scenario.VideoName, startTime)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := system.CheckFreeSpace(outDir, p.Config.MinFreeSpaceMB); err != nil {
		return "", err
	}

	p.log.Info("Generating video",
		zap.String("video", p.Scenario.VideoName),
		zap.Int("segments", p.Scenario.Length),
		zap.Int("actions", len(p.Scenario.Actions)),
		zap.Bool("chain", p.Config.Chain),
		zap.String("dir", outDir))

	imageStart := p.now()
	base, err := p.baseImage(ctx)
	if err != nil {
		return "", err
	}
	if err := system.WriteBytes(filepath.Join(outDir, BaseImageName), base.Data); err != nil {
		return "", err
	}
	p.stats.ImageTime = p.now().Sub(imageStart)

	segments, err := video.NewSegmentManager(p.Scenario.VideoName, outDir, p.Encoder, p.log)
	if err != nil {
		return "", err
	}

	synthStart := p.now()
	first := base
	for i, plan := range plans {
		path, err := p.renderSegment(ctx, segments, plan, first, base)
		if err != nil {
			return "", fmt.Errorf("segment %d: %w", plan.Index+1, err)
		}
		p.log.Info("Segment ready", zap.Int("segment", plan.Index+1), zap.Int("of", len(plans)))

		if p.Config.Chain && i < len(plans)-1 {
			if first, err = p.chainFrame(ctx, path); err != nil {
				return "", fmt.Errorf("segment %d: %w", plan.Index+1, err)
			}
		}
	}
	p.stats.SynthTime = p.now().Sub(synthStart)

	concatStart := p.now()
	finalPath, err := segments.Save(ctx)
	if err != nil {
		return "", err
	}
	p.stats.ConcatTime = p.now().Sub(concatStart)
	p.stats.TotalTime = p.now().Sub(startTime)

	if p.Config.ShowStats {
		p.stats.report(os.Stdout, p.Config.BuildVersion)
		if err := p.stats.appendLog(filepath.Join(outDir, "benchmark.log"), p.Scenario.VideoName, p.now()); err != nil {
			p.log.Warn("Could not write benchmark.log", zap.Error(err))
		}
	}

	return finalPath, nil
}

// Stats returns timings and counters of the last Run.
func (p *VideoProject) Stats() Stats {
	return p.stats
}

func (p *VideoProject) baseImage(ctx context.Context) (*synth.Image, error) {
	if p.Source != nil {
		p.log.Info("Using local base image", zap.Int("page", p.SourcePage+1))
		return source.BaseImage(p.Source, p.SourcePage, sourceDPI, p.Config.AspectRatio)
	}

	p.log.Info("Generating base image")
	img, err := p.Images.GenerateImage(ctx, p.Scenario.BaseScenePrompt)
	if err != nil {
		return nil, fmt.Errorf("base image: %w", err)
	}
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("base image: %w", synth.ErrNoImages)
	}
	p.stats.ImageCalls++
	return img, nil
}

// renderSegment adds one segment starting at first. Action-free segments
// reuse the base clip, which is synthesized on first use only. Chained runs
// never reuse.
func (p *VideoProject) renderSegment(ctx context.Context, segments *video.SegmentManager, plan director.SegmentPlan, first, base *synth.Image) (string, error) {
	reuse := plan.Base && !p.Config.Chain
	if reuse {
		if cached, ok := p.clips.Get(plan.Prompt); ok {
			p.stats.Reused++
			return segments.AddFile(ctx, cached.(string))
		}
	}

	clip, err := p.synthesize(ctx, plan.Prompt, first, base)
	if err != nil {
		return "", err
	}
	path, err := segments.AddClip(ctx, clip.Data)
	if err != nil {
		return "", err
	}

	if reuse {
		p.clips.Set(plan.Prompt, path, cache.NoExpiration)
	}
	return path, nil
}

func (p *VideoProject) synthesize(ctx context.Context, prompt string, first, base *synth.Image) (*synth.Clip, error) {
	req := synth.VideoRequest{
		Prompt:          prompt,
		Image:           first,
		DurationSeconds: p.Config.SegmentSeconds,
		AspectRatio:     p.Config.AspectRatio,
		Resolution:      p.Config.Resolution,
		NegativePrompt:  p.Config.NegativePrompt,
	}
	if p.Config.LoopLastFrame && !p.Config.Chain {
		req.LastFrame = base
	}

	p.stats.VideoCalls++
	clip, err := synth.GenerateVideo(ctx, p.Videos, req, p.poller)
	if err != nil {
		return nil, err
	}
	if len(clip.Data) == 0 {
		return nil, fmt.Errorf("%w: clip at %s was not downloaded", synth.ErrRemoteOnly, clip.URI)
	}
	return clip, nil
}

// chainFrame saves the last frame of the segment at segPath next to it as
// segment_NN_last.jpg and returns it as the next clip's first frame.
func (p *VideoProject) chainFrame(ctx context.Context, segPath string) (*synth.Image, error) {
	framePath := strings.TrimSuffix(segPath, filepath.Ext(segPath)) + "_last.jpg"
	if err := p.Encoder.ExtractLastFrame(ctx, segPath, framePath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("read last frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("last frame %s is empty", framePath)
	}
	p.stats.Frames++
	p.log.Info("Saved next starter frame", zap.String("path", framePath))
	return &synth.Image{Data: data, MIMEType: "image/jpeg"}, nil
}
