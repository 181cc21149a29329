package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// Content is a submitted item, one variant per supported media type.
// Variants are closed to this package: each dispatches to its own visitor
// method, so adding a media type fails to compile until the Normalizer
// handles it.
type Content interface {
	MediaType() model.MediaType
	accept(ctx context.Context, v visitor) Result
}

type visitor interface {
	visitText(ctx context.Context, c Text) Result
	visitURL(ctx context.Context, c URL) Result
	visitImage(ctx context.Context, c Image) Result
	visitVideo(ctx context.Context, c Video) Result
}

// Text is plain text submitted verbatim.
type Text struct {
	Body     string
	Metadata map[string]any
}

// URL is a web page to fetch.
type URL struct {
	Address  string
	Metadata map[string]any
}

// Image is an uploaded image with optional pre-extracted OCR text.
type Image struct {
	Path     string
	OCRText  string
	Metadata map[string]any
}

// Video is an uploaded video with an optional pre-extracted transcript.
type Video struct {
	Path       string
	Transcript string
	Metadata   map[string]any
}

func (Text) MediaType() model.MediaType  { return model.MediaText }
func (URL) MediaType() model.MediaType   { return model.MediaURL }
func (Image) MediaType() model.MediaType { return model.MediaImage }
func (Video) MediaType() model.MediaType { return model.MediaVideo }

func (c Text) accept(ctx context.Context, v visitor) Result  { return v.visitText(ctx, c) }
func (c URL) accept(ctx context.Context, v visitor) Result   { return v.visitURL(ctx, c) }
func (c Image) accept(ctx context.Context, v visitor) Result { return v.visitImage(ctx, c) }
func (c Video) accept(ctx context.Context, v visitor) Result { return v.visitVideo(ctx, c) }

// Metadata keys consumed from requests.
const (
	MetaOCRText    = "ocr_text"
	MetaTranscript = "transcript"
)

// NewContent builds the variant for mediaType. Unknown media types return
// model.ErrUnsupportedMediaType.
func NewContent(raw string, mediaType model.MediaType, metadata map[string]any) (Content, error) {
	switch mediaType {
	case model.MediaText:
		return Text{Body: raw, Metadata: metadata}, nil
	case model.MediaURL:
		return URL{Address: strings.TrimSpace(raw), Metadata: metadata}, nil
	case model.MediaImage:
		return Image{Path: raw, OCRText: stringMeta(metadata, MetaOCRText), Metadata: metadata}, nil
	case model.MediaVideo:
		return Video{Path: raw, Transcript: stringMeta(metadata, MetaTranscript), Metadata: metadata}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedMediaType, mediaType)
	}
}

func stringMeta(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	s, _ := metadata[key].(string)
	return strings.TrimSpace(s)
}

func copyMeta(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
