package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"

	DefaultImageModel = "imagen-3.0-generate-002"
	DefaultVideoModel = "veo-2.0-generate-001"
)

// ErrRemoteOnly is returned when a clip is only available at a storage URI
// that this client cannot fetch.
var ErrRemoteOnly = errors.New("video is only available remotely")

// GenAIOptions configures the Google Gen AI client.
type GenAIOptions struct {
	Backend    string
	ProjectID  string
	Location   string
	APIKey     string
	ImageModel string
	VideoModel string
}

// GenAIClient implements ImageGenerator and VideoGenerator on top of
// google.golang.org/genai (Imagen for stills, Veo for clips).
type GenAIClient struct {
	client     *genai.Client
	backend    string
	imageModel string
	videoModel string
	log        *zap.Logger
}

// NewGenAIClient connects to Vertex AI or the Gemini API.
func NewGenAIClient(ctx context.Context, opts GenAIOptions, log *zap.Logger) (*GenAIClient, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cc := &genai.ClientConfig{}
	switch opts.Backend {
	case "", BackendVertex:
		if opts.ProjectID == "" || opts.Location == "" {
			return nil, fmt.Errorf("vertex backend requires a project id and location")
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = opts.ProjectID
		cc.Location = opts.Location
		opts.Backend = BackendVertex
	case BackendGemini:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("gemini backend requires an api key")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = opts.APIKey
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.VideoModel == "" {
		opts.VideoModel = DefaultVideoModel
	}

	log.Debug("genai client ready",
		zap.String("backend", opts.Backend),
		zap.String("image_model", opts.ImageModel),
		zap.String("video_model", opts.VideoModel))

	return &GenAIClient{
		client:     client,
		backend:    opts.Backend,
		imageModel: opts.ImageModel,
		videoModel: opts.VideoModel,
		log:        log,
	}, nil
}

// GenerateImage returns the first image Imagen produces for prompt.
func (c *GenAIClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mime := gi.Image.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		return &Image{Data: gi.Image.ImageBytes, MIMEType: mime}, nil
	}
	return nil, ErrNoImages
}

// StartVideo submits a Veo generation and returns its pending operation.
func (c *GenAIClient) StartVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    req.AspectRatio,
		Resolution:     req.Resolution,
		NegativePrompt: req.NegativePrompt,
	}
	if req.DurationSeconds > 0 {
		cfg.DurationSeconds = genai.Ptr(int32(req.DurationSeconds))
	}
	if req.LastFrame != nil {
		cfg.LastFrame = toGenAIImage(req.LastFrame)
	}

	op, err := c.client.Models.GenerateVideos(ctx, c.videoModel, req.Prompt, toGenAIImage(req.Image), cfg)
	if err != nil {
		return nil, err
	}
	c.log.Debug("video operation started", zap.String("operation", op.Name))
	return fromGenAIOperation(op), nil
}

// PollVideo refreshes op. Finished clips that only carry a URI are
// downloaded when the backend allows it.
func (c *GenAIClient) PollVideo(ctx context.Context, op *Operation) (*Operation, error) {
	native, ok := op.native.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, fmt.Errorf("operation %s was not started by this client", op.Name)
	}

	next, err := c.client.Operations.GetVideosOperation(ctx, native, nil)
	if err != nil {
		return nil, err
	}

	out := fromGenAIOperation(next)
	if !out.Done || next.Response == nil {
		return out, nil
	}

	pending, err := pendingDownloads(c.backend, next.Response.GeneratedVideos)
	if err != nil {
		return nil, err
	}
	for _, d := range pending {
		c.log.Debug("downloading video", zap.String("uri", d.video.Video.URI))
		data, err := c.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(d.video), nil)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", d.video.Video.URI, err)
		}
		out.Videos[d.index].Data = data
	}
	return out, nil
}

// pendingDownload is a finished clip without bytes. index points into
// Operation.Videos, which skips empty entries of the response.
type pendingDownload struct {
	index int
	video *genai.GeneratedVideo
}

func pendingDownloads(backend string, videos []*genai.GeneratedVideo) ([]pendingDownload, error) {
	var pending []pendingDownload
	i := 0
	for _, gv := range videos {
		if gv == nil || gv.Video == nil {
			continue
		}
		if len(gv.Video.VideoBytes) == 0 {
			uri := gv.Video.URI
			if backend != BackendGemini || uri == "" || strings.HasPrefix(uri, "gs://") {
				return nil, fmt.Errorf("%w: %q", ErrRemoteOnly, uri)
			}
			pending = append(pending, pendingDownload{index: i, video: gv})
		}
		i++
	}
	return pending, nil
}

func toGenAIImage(img *Image) *genai.Image {
	if img == nil {
		return nil
	}
	return &genai.Image{ImageBytes: img.Data, MIMEType: img.MIMEType}
}

func fromGenAIOperation(op *genai.GenerateVideosOperation) *Operation {
	out := &Operation{Name: op.Name, Done: op.Done, native: op}
	if len(op.Error) > 0 {
		out.Err = operationError(op.Error)
	}
	if op.Response == nil {
		return out
	}

	for _, gv := range op.Response.GeneratedVideos {
		if gv == nil || gv.Video == nil {
			continue
		}
		out.Videos = append(out.Videos, Clip{
			Data:     gv.Video.VideoBytes,
			MIMEType: gv.Video.MIMEType,
			URI:      gv.Video.URI,
		})
	}
	if out.Done && len(out.Videos) == 0 && out.Err == "" && len(op.Response.RAIMediaFilteredReasons) > 0 {
		out.Err = "filtered: " + strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
	}
	return out
}

func operationError(e map[string]any) string {
	if msg, ok := e["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprint(e)
}
