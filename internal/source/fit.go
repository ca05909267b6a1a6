package source

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ivlev/bgvideo/internal/synth"
)

// MaxWidth bounds the width of a fitted base image.
const MaxWidth = 1920

// ParseAspect turns "16:9" into 16/9.
func ParseAspect(aspect string) (float64, error) {
	w, h, ok := strings.Cut(aspect, ":")
	if !ok {
		return 0, fmt.Errorf("invalid aspect ratio %q", aspect)
	}
	fw, err1 := strconv.ParseFloat(strings.TrimSpace(w), 64)
	fh, err2 := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err1 != nil || err2 != nil || fw <= 0 || fh <= 0 {
		return 0, fmt.Errorf("invalid aspect ratio %q", aspect)
	}
	return fw / fh, nil
}

// Fit center-crops img to the aspect ratio and scales it down to MaxWidth.
// Dimensions are kept even for H.264.
func Fit(img image.Image, aspect float64) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	cropW, cropH := w, h
	if float64(w)/float64(h) > aspect {
		cropW = int(math.Round(float64(h) * aspect))
	} else {
		cropH = int(math.Round(float64(w) / aspect))
	}
	x0 := b.Min.X + (w-cropW)/2
	y0 := b.Min.Y + (h-cropH)/2
	crop := image.Rect(x0, y0, x0+cropW, y0+cropH)

	outW, outH := cropW, cropH
	if outW > MaxWidth {
		outW = MaxWidth
		outH = int(math.Round(float64(MaxWidth) / aspect))
	}
	outW -= outW % 2
	outH -= outH % 2
	if outW < 2 {
		outW = 2
	}
	if outH < 2 {
		outH = 2
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img as a JPEG synth.Image.
func EncodeJPEG(img image.Image) (*synth.Image, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		return nil, err
	}
	return &synth.Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

// BaseImage renders page (0-based) of src and fits it to the aspect ratio.
func BaseImage(src Source, page, dpi int, aspect string) (*synth.Image, error) {
	ratio, err := ParseAspect(aspect)
	if err != nil {
		return nil, err
	}
	img, err := src.RenderPage(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page+1, err)
	}
	return EncodeJPEG(Fit(img, ratio))
}
