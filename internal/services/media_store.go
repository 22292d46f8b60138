package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/media"
	"gigboard_backend/internal/metrics"
	"gigboard_backend/internal/models"
	"gigboard_backend/pkg/apperrors"
)

// mediaFileStore сохраняет один файл пакета: объект, превью для картинок, запись Media.
// Живёт один запрос: db - пул или транзакция этого запроса.
type mediaFileStore struct {
	svc *mediaService
	db  *gorm.DB
}

func (s *mediaFileStore) Store(ctx context.Context, req media.StoreRequest) (*models.Media, error) {
	file := req.File
	contentType := file.ContentType()
	id := uuid.NewString()
	key := objectKey(req.Target.IsPublic, req.UserID, req.Target.Usage, id, media.ExtensionFor(file.Name(), contentType))

	if err := s.svc.storage.Save(ctx, key, req.Body, contentType); err != nil {
		return nil, apperrors.ErrStorage(fmt.Errorf("save %s: %w", file.Name(), err))
	}

	m := &models.Media{
		UserID:          req.UserID,
		Type:            file.Type,
		Usage:           req.Target.Usage,
		EntityType:      req.Target.EntityType,
		EntityID:        req.Target.EntityID,
		OriginalName:    path.Base(file.Name()),
		Path:            key,
		MimeType:        contentType,
		Size:            file.FileSize,
		DurationSeconds: file.Duration,
		AltText:         file.AltText,
		IsPublic:        req.Target.IsPublic,
		StorageProvider: s.svc.storage.Provider(),
	}
	m.ID = id
	m.URL = s.objectURL(ctx, m, key, false)

	if file.Type == models.MediaTypeImage {
		s.storeThumbnail(ctx, m, file)
	}

	if err := s.svc.mediaRepo.Create(s.db.WithContext(ctx), m); err != nil {
		s.cleanup(m)
		return nil, apperrors.ErrDatabase(err)
	}

	metrics.MediaFilesUploaded.WithLabelValues(string(m.Type), m.Usage).Inc()
	metrics.MediaUploadBytes.WithLabelValues(string(m.Type)).Add(float64(m.Size))
	return m, nil
}

// storeThumbnail - ошибка превью не валит загрузку
func (s *mediaFileStore) storeThumbnail(ctx context.Context, m *models.Media, file *media.MediaFile) {
	src, err := file.File.Open()
	if err != nil {
		logger.CtxWithError(ctx, "thumbnail: reopen image", err, "media_id", m.ID)
		return
	}
	defer src.Close()

	thumb, err := s.svc.images.Thumbnail(src)
	if err != nil {
		logger.CtxWarn(ctx, "thumbnail not generated", "media_id", m.ID, "error", err.Error())
		return
	}

	key := strings.TrimSuffix(m.Path, path.Ext(m.Path)) + "_thumb.jpg"
	if err := s.svc.storage.Save(ctx, key, thumb, "image/jpeg"); err != nil {
		logger.CtxWithError(ctx, "thumbnail: save", err, "media_id", m.ID)
		return
	}
	m.ThumbnailPath = key
	m.ThumbnailURL = s.objectURL(ctx, m, key, true)
}

// objectURL - публичная ссылка хранилища; приватные файлы отдаются через /files/:id
func (s *mediaFileStore) objectURL(ctx context.Context, m *models.Media, key string, thumbnail bool) string {
	if !m.IsPublic {
		if thumbnail {
			return "/api/v1/files/" + m.ID + "?thumbnail=true"
		}
		return "/api/v1/files/" + m.ID
	}
	url, err := s.svc.storage.GetURL(ctx, key)
	if err != nil {
		logger.CtxWithError(ctx, "resolve object url", err, "key", key)
		return "/api/v1/files/" + m.ID
	}
	return url
}

// cleanup удаляет уже сохранённые объекты, если запись в БД не создалась.
// Контекст запроса мог быть отменён, поэтому берём фоновый.
func (s *mediaFileStore) cleanup(m *models.Media) {
	ctx := context.Background()
	for _, key := range []string{m.Path, m.ThumbnailPath} {
		if key == "" {
			continue
		}
		if err := s.svc.storage.Delete(ctx, key); err != nil {
			logger.Error("CRITICAL: failed to remove orphaned object", "key", key, "error", err.Error())
		}
	}
}

// PublicPrefix - объекты под этим префиксом локальное хранилище раздаёт статикой;
// приватные лежат под PrivatePrefix и доступны только через /files/:id
const (
	PublicPrefix  = "media"
	PrivatePrefix = "private"
)

func objectKey(public bool, userID, usage, id, ext string) string {
	prefix := PrivatePrefix
	if public {
		prefix = PublicPrefix
	}
	return path.Join(prefix, userID, usage, id+ext)
}
