package domain

import (
	"fmt"
	"strings"
)

// ContentType identifies the kind of media a record points to.
type ContentType string

const (
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
)

// ContentTypes lists all valid content types in catalog order.
var ContentTypes = []ContentType{ContentTypeImage, ContentTypeVideo}

// ParseContentType converts a string into a ContentType.
// Parameters:
//   - s: raw content type string ("image" or "video").
// Returns:
//   - ContentType: parsed content type.
//   - error: non-nil if the value is unknown.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentTypeImage:
		return ContentTypeImage, nil
	case ContentTypeVideo:
		return ContentTypeVideo, nil
	}
	return "", fmt.Errorf("unknown content type: %q", s)
}

// Valid reports whether the content type is one of the known values.
func (c ContentType) Valid() bool {
	return c == ContentTypeImage || c == ContentTypeVideo
}

// Meta carries the catalog taxonomy for image records.
// Video records have empty meta.
type Meta struct {
	Category    string `json:"category,omitempty"`
	SubCategory string `json:"sub_category,omitempty"`
}

// MediaRecord represents a single catalog entry.
// A record's identity is its position in the catalog array; records are never
// mutated after load.
type MediaRecord struct {
	ContentType ContentType `json:"content_type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Link        string      `json:"link"`
	Meta        Meta        `json:"meta"`
}

// PrimaryText returns the record's primary searchable text (title + description).
// The description often duplicates the title for product images; duplicates
// are kept so the text matches what the embedding producer saw.
func (r MediaRecord) PrimaryText() string {
	parts := make([]string, 0, 2)
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	return strings.Join(parts, " ")
}

// SearchableText returns the full searchable text: title + description, plus
// category and sub-category for image records.
func (r MediaRecord) SearchableText() string {
	parts := make([]string, 0, 4)
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	if r.ContentType == ContentTypeImage {
		if r.Meta.Category != "" {
			parts = append(parts, r.Meta.Category)
		}
		if r.Meta.SubCategory != "" {
			parts = append(parts, r.Meta.SubCategory)
		}
	}
	return strings.Join(parts, " ")
}
