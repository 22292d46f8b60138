package dto

import (
	"mime/multipart"
	"time"

	"gigboard_backend/internal/media"
	"gigboard_backend/internal/models"
)

// ============================================
// REQUEST STRUCTURES
// ============================================

// MediaUploadRequest - пакетная загрузка (multipart, поле "files")
type MediaUploadRequest struct {
	UserID     string `form:"-" validate:"-"` // Из контекста
	Usage      string `form:"usage" validate:"required,is-upload-usage"`
	EntityType string `form:"entity_type" validate:"omitempty,max=64"`
	EntityID   string `form:"entity_id" validate:"omitempty,max=64"`
	IsPublic   *bool  `form:"is_public"`
	AltText    string `form:"alt_text" validate:"omitempty,max=500"`
	// BatchID можно передать заранее, чтобы подписаться на прогресс до начала загрузки
	BatchID string                  `form:"batch_id" validate:"omitempty,uuid"`
	Files   []*multipart.FileHeader `form:"-" validate:"-"`
}

// EmbedMediaRequest - внешняя ссылка (YouTube, SoundCloud)
type EmbedMediaRequest struct {
	URL        string `json:"url" validate:"required,http_url,max=2048"`
	AltText    string `json:"alt_text" validate:"omitempty,max=500"`
	Usage      string `json:"usage" validate:"required,is-upload-usage"`
	EntityType string `json:"entity_type" validate:"omitempty,max=64"`
	EntityID   string `json:"entity_id" validate:"omitempty,max=64"`
}

// ============================================
// RESPONSE STRUCTURES
// ============================================

type MediaResponse struct {
	ID           string           `json:"id"`
	Type         models.MediaType `json:"type"`
	Usage        string           `json:"usage"`
	EntityType   string           `json:"entity_type,omitempty"`
	EntityID     string           `json:"entity_id,omitempty"`
	Name         string           `json:"name"`
	URL          string           `json:"url"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
	Duration     *float64         `json:"duration,omitempty"`
	MimeType     string           `json:"mime_type,omitempty"`
	Size         int64            `json:"size"`
	AltText      string           `json:"alt_text,omitempty"`
	IsPublic     bool             `json:"is_public"`
	CreatedAt    time.Time        `json:"created_at"`
}

func NewMediaResponse(m *models.Media) *MediaResponse {
	return &MediaResponse{
		ID:           m.ID,
		Type:         m.Type,
		Usage:        m.Usage,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		Name:         m.OriginalName,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		Duration:     m.DurationSeconds,
		MimeType:     m.MimeType,
		Size:         m.Size,
		AltText:      m.AltText,
		IsPublic:     m.IsPublic,
		CreatedAt:    m.CreatedAt,
	}
}

// RejectedFile - файл, не прошедший валидацию (не загружался)
type RejectedFile struct {
	FileID   string           `json:"file_id"`
	FileName string           `json:"file_name"`
	Size     int64            `json:"size"`
	Code     media.ReasonCode `json:"code"`
	Reason   string           `json:"reason"`
}

func NewRejectedFiles(invalid []media.InvalidFile) []RejectedFile {
	out := make([]RejectedFile, 0, len(invalid))
	for _, inv := range invalid {
		out = append(out, RejectedFile{
			FileID:   inv.File.ID,
			FileName: inv.File.Name(),
			Size:     inv.File.FileSize,
			Code:     inv.Code,
			Reason:   inv.Reason,
		})
	}
	return out
}

// MediaUploadResponse - итог пакета: загруженные, отклонённые валидацией и упавшие при загрузке
type MediaUploadResponse struct {
	BatchID  string            `json:"batch_id"`
	Success  bool              `json:"success"`
	Uploaded []*MediaResponse  `json:"uploaded"`
	Rejected []RejectedFile    `json:"rejected"`
	Failed   []media.FileError `json:"failed"`
	Error    string            `json:"error,omitempty"`
}

// Complete - все присланные файлы загружены
func (r *MediaUploadResponse) Complete() bool {
	return r.Success && len(r.Rejected) == 0
}

type MediaListResponse struct {
	Items  []*MediaResponse `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// StorageUsageResponse - информация об использовании хранилища
type StorageUsageResponse struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	Percentage float64 `json:"percentage"`
	UsedHuman  string  `json:"used_human"`
	LimitHuman string  `json:"limit_human"`
}

type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
