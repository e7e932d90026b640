package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/dskvich/classifier-bot/pkg/domain"
)

const (
	DefaultPreviewSide = 320

	previewQuality  = 85
	previewMimeType = "image/jpeg"
	dataURLPrefix   = "data:" + previewMimeType + ";base64,"
)

var ErrDecode = errors.New("unable to decode image")

// Preview is the downscaled representation shown back to the user.
type Preview struct {
	DataURL string
	Image   []byte
	Width   int
	Height  int
}

type thumbnailPreviewer struct {
	maxSide int
}

func NewThumbnailPreviewer(maxSide int) *thumbnailPreviewer {
	if maxSide <= 0 {
		maxSide = DefaultPreviewSide
	}
	return &thumbnailPreviewer{maxSide: maxSide}
}

type previewResult struct {
	preview *Preview
	err     error
}

// Preview decodes the file off the caller's goroutine and waits for either
// the result or ctx cancellation.
func (p *thumbnailPreviewer) Preview(ctx context.Context, file domain.ImageFile) (*Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan previewResult, 1)
	go func() {
		preview, err := p.render(file.Data)
		done <- previewResult{preview: preview, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.preview, res.err
	}
}

func (p *thumbnailPreviewer) render(data []byte) (*Preview, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	thumb := imaging.Fit(img, p.maxSide, p.maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return nil, fmt.Errorf("encoding preview: %w", err)
	}

	bounds := thumb.Bounds()
	return &Preview{
		DataURL: dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Image:   buf.Bytes(),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}
