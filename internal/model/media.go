package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedMediaType is returned for media types outside MediaTypes.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// MediaType identifies the kind of content submitted for analysis.
type MediaType string

const (
	MediaText  MediaType = "text"
	MediaURL   MediaType = "url"
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaTypes lists every supported media type.
var MediaTypes = []MediaType{MediaText, MediaURL, MediaImage, MediaVideo}

// ParseMediaType validates s and returns the matching MediaType.
func ParseMediaType(s string) (MediaType, error) {
	mt := MediaType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MediaTypes {
		if mt == known {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, s)
}

// NormalizedContent is the searchable form of a submitted item.
type NormalizedContent struct {
	TextContent string         `json:"text_content"`
	SearchQuery string         `json:"search_query"`
	Metadata    map[string]any `json:"metadata"`
}
