package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestFromGenAIOperationPending(t *testing.T) {
	native := &genai.GenerateVideosOperation{Name: "operations/abc"}
	op := fromGenAIOperation(native)

	assert.Equal(t, "operations/abc", op.Name)
	assert.False(t, op.Done)
	assert.Empty(t, op.Videos)
	assert.Same(t, native, op.native)
}

func TestFromGenAIOperationDone(t *testing.T) {
	op := fromGenAIOperation(&genai.GenerateVideosOperation{
		Name: "operations/abc",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{
				nil,
				{Video: &genai.Video{VideoBytes: []byte("mp4"), MIMEType: "video/mp4"}},
				{Video: &genai.Video{URI: "gs://bucket/clip.mp4"}},
			},
		},
	})

	require.Len(t, op.Videos, 2)
	assert.Equal(t, []byte("mp4"), op.Videos[0].Data)
	assert.Equal(t, "video/mp4", op.Videos[0].MIMEType)
	assert.Equal(t, "gs://bucket/clip.mp4", op.Videos[1].URI)
	assert.Empty(t, op.Err)
}

func TestFromGenAIOperationError(t *testing.T) {
	op := fromGenAIOperation(&genai.GenerateVideosOperation{
		Done:  true,
		Error: map[string]any{"code": 8, "message": "resource exhausted"},
	})
	assert.Equal(t, "resource exhausted", op.Err)

	op = fromGenAIOperation(&genai.GenerateVideosOperation{
		Done:     true,
		Response: &genai.GenerateVideosResponse{RAIMediaFilteredReasons: []string{"unsafe"}},
	})
	assert.Equal(t, "filtered: unsafe", op.Err)
}

func TestToGenAIImage(t *testing.T) {
	assert.Nil(t, toGenAIImage(nil))

	img := toGenAIImage(&Image{Data: []byte{1, 2}, MIMEType: "image/png"})
	assert.Equal(t, []byte{1, 2}, img.ImageBytes)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestNewGenAIClientValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewGenAIClient(ctx, GenAIOptions{Backend: BackendVertex}, nil)
	assert.ErrorContains(t, err, "project id")

	_, err = NewGenAIClient(ctx, GenAIOptions{Backend: BackendGemini}, nil)
	assert.ErrorContains(t, err, "api key")

	_, err = NewGenAIClient(ctx, GenAIOptions{Backend: "openai"}, nil)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestPollVideoRejectsForeignOperation(t *testing.T) {
	c := &GenAIClient{}
	_, err := c.PollVideo(context.Background(), &Operation{Name: "fake"})
	assert.ErrorContains(t, err, "not started by this client")
}

func TestPendingDownloads(t *testing.T) {
	inline := &genai.GeneratedVideo{Video: &genai.Video{VideoBytes: []byte("mp4")}}
	hosted := &genai.GeneratedVideo{Video: &genai.Video{URI: "https://generativelanguage.googleapis.com/v1beta/files/abc:download"}}
	bucket := &genai.GeneratedVideo{Video: &genai.Video{URI: "gs://bucket/clip.mp4"}}
	bare := &genai.GeneratedVideo{Video: &genai.Video{}}

	tests := []struct {
		name    string
		backend string
		videos  []*genai.GeneratedVideo
		want    []int
		wantErr bool
	}{
		{"all inline", BackendVertex, []*genai.GeneratedVideo{inline, inline}, nil, false},
		{"gemini hosted", BackendGemini, []*genai.GeneratedVideo{hosted}, []int{0}, false},
		{"skipped entries keep alignment", BackendGemini, []*genai.GeneratedVideo{nil, inline, {}, hosted}, []int{1}, false},
		{"gs uri on gemini", BackendGemini, []*genai.GeneratedVideo{bucket}, nil, true},
		{"hosted uri on vertex", BackendVertex, []*genai.GeneratedVideo{inline, hosted}, nil, true},
		{"no bytes and no uri", BackendGemini, []*genai.GeneratedVideo{bare}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending, err := pendingDownloads(tt.backend, tt.videos)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRemoteOnly)
				return
			}
			require.NoError(t, err)

			var got []int
			for _, d := range pending {
				got = append(got, d.index)
			}
			assert.Equal(t, tt.want, got)

			op := fromGenAIOperation(&genai.GenerateVideosOperation{
				Done:     true,
				Response: &genai.GenerateVideosResponse{GeneratedVideos: tt.videos},
			})
			for _, d := range pending {
				require.Less(t, d.index, len(op.Videos))
				assert.Equal(t, d.video.Video.URI, op.Videos[d.index].URI)
				assert.Empty(t, op.Videos[d.index].Data)
			}
		})
	}
}
