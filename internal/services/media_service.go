package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/imageprocessor"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/media"
	"gigboard_backend/internal/metrics"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/progress"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/storage"
	"gigboard_backend/internal/types"
	"gigboard_backend/pkg/apperrors"
)

const signedURLTTL = 15 * time.Minute

// ============================================
// MEDIA SERVICE
// ============================================

type MediaService interface {
	// Пакетная загрузка: валидация, квота, параллельная загрузка с прогрессом
	UploadBatch(ctx context.Context, db *gorm.DB, req *dto.MediaUploadRequest) (*dto.MediaUploadResponse, error)

	// Внешняя ссылка (YouTube, SoundCloud) без объекта в хранилище
	CreateEmbedded(db *gorm.DB, userID string, req *dto.EmbedMediaRequest) (*dto.MediaResponse, error)

	GetMedia(db *gorm.DB, viewer Viewer, mediaID string) (*models.Media, error)
	ListUserMedia(db *gorm.DB, userID string, filters *types.MediaFilters) (*dto.MediaListResponse, error)
	DeleteMedia(db *gorm.DB, viewer Viewer, mediaID string) error
	GetUserStorageUsage(db *gorm.DB, userID string) (*dto.StorageUsageResponse, error)
	GetBatchProgress(ctx context.Context, userID, batchID string) (*progress.Snapshot, error)

	// Отдача файла и подписанные ссылки
	OpenFile(ctx context.Context, db *gorm.DB, viewer Viewer, mediaID string, thumbnail bool) (*FileObject, error)
	GetSignedURL(ctx context.Context, db *gorm.DB, viewer Viewer, mediaID string) (*dto.SignedURLResponse, error)
}

// Viewer - кто обращается к ресурсу. Пустой UserID - аноним.
type Viewer struct {
	UserID string
	Role   models.UserRole
}

func (v Viewer) canRead(m *models.Media) bool {
	return m.IsPublic || v.canModify(m)
}

func (v Viewer) canModify(m *models.Media) bool {
	return v.UserID != "" && (v.UserID == m.UserID || v.Role == models.UserRoleAdmin)
}

// ProgressNotifier доставляет события прогресса владельцу пакета (ws hub)
type ProgressNotifier interface {
	SendToUser(userID string, message any)
}

type mediaService struct {
	mediaRepo repositories.MediaRepository
	storage   storage.Storage
	images    *imageprocessor.Processor
	cfg       *config.Config
	notifier  ProgressNotifier
	progress  progress.Store // nil, если Redis не настроен
	now       func() time.Time
}

func NewMediaService(
	mediaRepo repositories.MediaRepository,
	storage storage.Storage,
	images *imageprocessor.Processor,
	cfg *config.Config,
	notifier ProgressNotifier,
	progressStore progress.Store,
) MediaService {
	if cfg == nil {
		cfg = config.Default()
	}
	if images == nil {
		images = imageprocessor.NewProcessor(cfg.Upload.ImageQuality)
	}
	return &mediaService{
		mediaRepo: mediaRepo,
		storage:   storage,
		images:    images,
		cfg:       cfg,
		notifier:  notifier,
		progress:  progressStore,
		now:       time.Now,
	}
}

// ============================================
// UPLOAD
// ============================================

func (s *mediaService) UploadBatch(ctx context.Context, db *gorm.DB, req *dto.MediaUploadRequest) (*dto.MediaUploadResponse, error) {
	profile, ok := s.cfg.UploadProfile(req.Usage)
	if !ok {
		return nil, apperrors.ErrInvalidUploadUsage.WithDetails(map[string]string{"usage": req.Usage})
	}
	if len(req.Files) == 0 {
		return nil, apperrors.ErrNoFilesProvided
	}
	if limit := s.cfg.Upload.MaxFiles; limit > 0 && len(req.Files) > limit {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("Too many files: at most %d per upload", limit))
	}

	files := make([]*media.MediaFile, 0, len(req.Files))
	for _, header := range req.Files {
		src, err := media.FromMultipart(header)
		if err != nil {
			return nil, apperrors.NewBadRequestError("Unreadable file: " + header.Filename).WithError(err)
		}
		file := media.NewMediaFile(src)
		file.AltText = req.AltText
		files = append(files, file)
	}

	valid, invalid := media.ValidateFiles(files, media.Constraints{
		MaxFileSize:  profile.MaxSize,
		AllowedTypes: profile.AllowedTypes,
	})
	for _, inv := range invalid {
		logger.CtxWarn(ctx, "file rejected by validation",
			"file", inv.File.Name(),
			"size", inv.File.FileSize,
			"content_type", inv.File.ContentType(),
			"usage", req.Usage,
			"reason", inv.Reason,
		)
		metrics.MediaFilesRejected.WithLabelValues(string(inv.Code)).Inc()
	}
	rejected := dto.NewRejectedFiles(invalid)

	if len(valid) == 0 {
		return nil, noFilesAccepted(invalid, rejected)
	}

	if err := s.checkQuota(db, req.UserID, valid); err != nil {
		return nil, err
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	ctx = logger.WithBatchID(ctx, batchID)

	target := media.Target{
		Usage:      req.Usage,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		IsPublic:   req.IsPublic == nil || *req.IsPublic,
	}

	pub := newProgressPublisher(ctx, batchID, req.UserID, valid, s.notifier, s.progress)
	pub.start()

	started := s.now()
	uploader := media.NewUploader(&mediaFileStore{svc: s, db: db}, s.cfg.Upload.Concurrency)
	result := uploader.UploadFiles(ctx, media.BatchRequest{
		BatchID:        batchID,
		UserID:         req.UserID,
		Target:         target,
		MediaFiles:     valid,
		OnProgress:     pub.onProgress,
		OnFileProgress: pub.onFileProgress,
	})
	pub.finish(result)

	metrics.MediaBatchDuration.WithLabelValues(req.Usage).Observe(s.now().Sub(started).Seconds())
	if n := len(result.Failed); n > 0 {
		metrics.MediaUploadFailures.WithLabelValues(req.Usage).Add(float64(n))
	}

	resp := &dto.MediaUploadResponse{
		BatchID:  batchID,
		Success:  result.Success,
		Uploaded: make([]*dto.MediaResponse, 0, len(result.MediaItems)),
		Rejected: rejected,
		Failed:   result.Failed,
	}
	for _, m := range result.MediaItems {
		resp.Uploaded = append(resp.Uploaded, dto.NewMediaResponse(m))
	}
	if result.Error != nil {
		resp.Error = result.Error.Error()
	}

	logger.CtxInfo(ctx, "upload batch finished",
		"usage", req.Usage,
		"uploaded", len(result.MediaItems),
		"rejected", len(rejected),
		"failed", len(result.Failed),
	)

	if len(result.MediaItems) == 0 {
		return nil, apperrors.ErrUploadFailed.WithDetails(resp)
	}
	return resp, nil
}

// noFilesAccepted - для одиночного файла отдаём конкретный код (413/415), причина в details
func noFilesAccepted(invalid []media.InvalidFile, rejected []dto.RejectedFile) error {
	if len(invalid) == 1 {
		switch invalid[0].Code {
		case media.ReasonFileTooLarge:
			return apperrors.ErrFileTooLarge.WithDetails(rejected)
		case media.ReasonTypeNotAllowed:
			return apperrors.ErrInvalidFileType.WithDetails(rejected)
		}
	}
	return apperrors.ErrNoFilesAccepted.WithDetails(rejected)
}

// checkQuota проверяет квоту сразу на весь пакет
func (s *mediaService) checkQuota(db *gorm.DB, userID string, files []*media.MediaFile) error {
	limit := s.cfg.Upload.MaxUserStorage
	if limit <= 0 {
		return nil
	}

	used, err := s.mediaRepo.GetUserStorageUsage(db, userID)
	if err != nil {
		return apperrors.ErrDatabase(err)
	}

	var incoming int64
	for _, f := range files {
		incoming += f.FileSize
	}
	if used+incoming > limit {
		return apperrors.ErrStorageLimitExceeded.WithDetails(map[string]string{
			"used":     humanize.IBytes(uint64(used)),
			"incoming": humanize.IBytes(uint64(incoming)),
			"limit":    humanize.IBytes(uint64(limit)),
		})
	}
	return nil
}

// ============================================
// EMBEDDED
// ============================================

func (s *mediaService) CreateEmbedded(db *gorm.DB, userID string, req *dto.EmbedMediaRequest) (*dto.MediaResponse, error) {
	if _, ok := s.cfg.UploadProfile(req.Usage); !ok {
		return nil, apperrors.ErrInvalidUploadUsage.WithDetails(map[string]string{"usage": req.Usage})
	}

	file, err := media.NewEmbeddedMedia(req.URL, req.AltText)
	if err != nil {
		return nil, apperrors.NewBadRequestError("Embed URL must be an absolute http(s) link")
	}

	m := &models.Media{
		UserID:          userID,
		Type:            models.MediaTypeEmbedded,
		Usage:           req.Usage,
		EntityType:      req.EntityType,
		EntityID:        req.EntityID,
		OriginalName:    file.URL,
		URL:             file.URL,
		AltText:         file.AltText,
		IsPublic:        true,
		StorageProvider: "external",
	}
	if err := s.mediaRepo.Create(db, m); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	file.Backfill(m)

	return dto.NewMediaResponse(m), nil
}

// ============================================
// READ / DELETE
// ============================================

func (s *mediaService) GetMedia(db *gorm.DB, viewer Viewer, mediaID string) (*models.Media, error) {
	m, err := s.mediaRepo.FindByID(db, mediaID)
	if err != nil {
		return nil, handleMediaError(err)
	}
	// Чужой приватный файл выглядит как отсутствующий
	if !viewer.canRead(m) {
		return nil, apperrors.ErrMediaNotFound
	}
	return m, nil
}

func (s *mediaService) ListUserMedia(db *gorm.DB, userID string, filters *types.MediaFilters) (*dto.MediaListResponse, error) {
	if filters == nil {
		filters = &types.MediaFilters{}
	}
	items, total, err := s.mediaRepo.FindByUser(db, userID, filters)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	resp := &dto.MediaListResponse{
		Items:  make([]*dto.MediaResponse, 0, len(items)),
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}
	for _, m := range items {
		resp.Items = append(resp.Items, dto.NewMediaResponse(m))
	}
	return resp, nil
}

// DeleteMedia помечает запись удалённой; объект из хранилища убирает MediaCleanupWorker
func (s *mediaService) DeleteMedia(db *gorm.DB, viewer Viewer, mediaID string) error {
	m, err := s.mediaRepo.FindByID(db, mediaID)
	if err != nil {
		return handleMediaError(err)
	}
	if !viewer.canModify(m) {
		if m.IsPublic {
			return apperrors.ErrInsufficientPermissions
		}
		return apperrors.ErrMediaNotFound
	}

	if err := s.mediaRepo.SoftDelete(db, m.ID); err != nil {
		return handleMediaError(err)
	}
	return nil
}

func (s *mediaService) GetUserStorageUsage(db *gorm.DB, userID string) (*dto.StorageUsageResponse, error) {
	used, err := s.mediaRepo.GetUserStorageUsage(db, userID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	limit := s.cfg.Upload.MaxUserStorage
	resp := &dto.StorageUsageResponse{
		Used:       used,
		Limit:      limit,
		UsedHuman:  humanize.IBytes(uint64(used)),
		LimitHuman: humanize.IBytes(uint64(limit)),
	}
	if limit > 0 {
		resp.Percentage = float64(used) / float64(limit) * 100
	}
	return resp, nil
}

func (s *mediaService) GetBatchProgress(ctx context.Context, userID, batchID string) (*progress.Snapshot, error) {
	if s.progress == nil {
		return nil, apperrors.ErrProgressUnavailable
	}

	snap, err := s.progress.Get(ctx, userID, batchID)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			return nil, apperrors.ErrProgressNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if snap.UserID != userID {
		return nil, apperrors.ErrProgressNotFound
	}
	return snap, nil
}

// ============================================
// FILES
// ============================================

// FileObject - открытый объект хранилища. Body нужно закрыть.
type FileObject struct {
	Media       *models.Media
	Body        io.ReadCloser
	ContentType string
	Name        string
}

func (s *mediaService) OpenFile(ctx context.Context, db *gorm.DB, viewer Viewer, mediaID string, thumbnail bool) (*FileObject, error) {
	m, err := s.GetMedia(db, viewer, mediaID)
	if err != nil {
		return nil, err
	}
	if !m.IsStored() {
		return nil, apperrors.NewBadRequestError("Embedded media has no stored file")
	}

	obj := &FileObject{Media: m, ContentType: m.MimeType, Name: m.OriginalName}
	key := m.Path
	if thumbnail {
		if m.ThumbnailPath == "" {
			return nil, apperrors.NewNotFoundError("Thumbnail")
		}
		key = m.ThumbnailPath
		obj.ContentType = "image/jpeg"
		obj.Name = "thumbnail.jpg"
	}

	obj.Body, err = s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrMediaNotFound.WithError(err)
		}
		return nil, apperrors.ErrStorage(err)
	}
	return obj, nil
}

func (s *mediaService) GetSignedURL(ctx context.Context, db *gorm.DB, viewer Viewer, mediaID string) (*dto.SignedURLResponse, error) {
	m, err := s.GetMedia(db, viewer, mediaID)
	if err != nil {
		return nil, err
	}
	if !m.IsStored() {
		return nil, apperrors.NewBadRequestError("Embedded media has no stored file")
	}
	// Локальное хранилище не умеет подписывать: приватные файлы только через /files/:id
	if !m.IsPublic && s.storage.Provider() == "local" {
		return nil, apperrors.ErrSignedURLUnsupported
	}

	url, err := s.storage.GetSignedURL(ctx, m.Path, signedURLTTL)
	if err != nil {
		return nil, apperrors.ErrStorage(err)
	}
	return &dto.SignedURLResponse{URL: url, ExpiresAt: s.now().Add(signedURLTTL)}, nil
}

func handleMediaError(err error) error {
	if errors.Is(err, repositories.ErrMediaNotFound) {
		return apperrors.ErrMediaNotFound
	}
	return apperrors.ErrDatabase(err)
}
