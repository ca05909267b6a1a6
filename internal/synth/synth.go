// Package synth wraps the remote image and video synthesis capabilities
// behind a narrow request/poll interface.
package synth

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoImages        = errors.New("image generation returned no images")
	ErrNoVideos        = errors.New("video generation returned no videos")
	ErrOperationFailed = errors.New("video operation failed")
)

// Image is an encoded still image.
type Image struct {
	Data     []byte
	MIMEType string
}

// Clip is one generated video artifact. Data is empty when the backend only
// returned a remote URI.
type Clip struct {
	Data     []byte
	MIMEType string
	URI      string
}

// VideoRequest describes one clip to synthesize.
type VideoRequest struct {
	Prompt          string
	Image           *Image // first frame
	LastFrame       *Image // optional
	DurationSeconds int
	AspectRatio     string
	Resolution      string
	NegativePrompt  string
}

// Operation is a handle on an asynchronous video generation.
type Operation struct {
	Name   string
	Done   bool
	Videos []Clip
	Err    string // set when the remote operation finished with an error

	native any
}

// ImageGenerator produces a still image from a prompt
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// VideoGenerator starts video generations and refreshes their state
type VideoGenerator interface {
	StartVideo(ctx context.Context, req VideoRequest) (*Operation, error)
	PollVideo(ctx context.Context, op *Operation) (*Operation, error)
}

// GenerateVideo starts a generation, waits for it with the poller and
// returns the first produced clip.
func GenerateVideo(ctx context.Context, gen VideoGenerator, req VideoRequest, p *Poller) (*Clip, error) {
	op, err := gen.StartVideo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("start video: %w", err)
	}

	op, err = p.Wait(ctx, gen, op)
	if err != nil {
		return nil, err
	}

	if op.Err != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrOperationFailed, op.Name, op.Err)
	}
	if len(op.Videos) == 0 {
		return nil, fmt.Errorf("%w: operation %s", ErrNoVideos, op.Name)
	}
	clip := op.Videos[0]
	return &clip, nil
}
