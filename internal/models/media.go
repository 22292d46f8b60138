package models

import (
	"fmt"
	"strings"
)

// MediaType - закрытый набор типов медиа.
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
	// MediaTypeEmbedded никогда не определяется по файлу: это внешняя ссылка (YouTube, SoundCloud).
	MediaTypeEmbedded MediaType = "embedded"
)

var AllMediaTypes = []MediaType{
	MediaTypeImage,
	MediaTypeVideo,
	MediaTypeAudio,
	MediaTypeDocument,
	MediaTypeEmbedded,
}

func (t MediaType) IsValid() bool {
	switch t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeAudio, MediaTypeDocument, MediaTypeEmbedded:
		return true
	}
	return false
}

func ParseMediaType(s string) (MediaType, error) {
	t := MediaType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown media type %q", s)
	}
	return t, nil
}

// Media - сохранённая запись о загруженном (или встроенном) медиафайле.
type Media struct {
	BaseModelWithDeleted
	UserID       string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         MediaType `gorm:"type:varchar(16);not null;index" json:"type"`
	Usage        string    `gorm:"type:varchar(32);index" json:"usage"` // "epk", "track", "avatar", ...
	EntityType   string    `json:"entity_type,omitempty"`               // "artist_profile", "job_application", ...
	EntityID     string    `gorm:"index" json:"entity_id,omitempty"`
	OriginalName string    `json:"original_name"`
	Path         string    `json:"-"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mime_type,omitempty"`
	Size         int64     `json:"size"`

	ThumbnailPath   string   `json:"-"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	DurationSeconds *float64 `json:"duration,omitempty"`
	AltText         string   `json:"alt_text,omitempty"`
	IsPublic        bool     `gorm:"default:true" json:"is_public"`
	StorageProvider string   `gorm:"default:'local'" json:"-"` // 'local', 's3', 'cloudflare_r2', 'external'
}

func (Media) TableName() string {
	return "media"
}

// IsStored - есть ли у записи объект в хранилище (у embedded его нет)
func (m *Media) IsStored() bool {
	return m.Type != MediaTypeEmbedded && m.Path != ""
}
