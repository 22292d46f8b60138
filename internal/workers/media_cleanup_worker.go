package workers

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/metrics"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/storage"
)

const (
	mediaCleanupWorkerName = "media_cleanup"
	mediaCleanupBatchSize  = 100
)

// MediaCleanupWorker удаляет из хранилища объекты медиа, помеченных удалёнными
// дольше retention назад, и затем саму запись.
type MediaCleanupWorker struct {
	db        *gorm.DB
	mediaRepo repositories.MediaRepository
	storage   storage.Storage
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewMediaCleanupWorker(db *gorm.DB, mediaRepo repositories.MediaRepository, store storage.Storage, interval, retention time.Duration) *MediaCleanupWorker {
	return &MediaCleanupWorker{
		db:        db,
		mediaRepo: mediaRepo,
		storage:   store,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Start запускает очистку в фоне; interval <= 0 выключает воркер
func (w *MediaCleanupWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		logger.Info("Media cleanup worker disabled")
		return
	}
	go w.loop(ctx)
}

func (w *MediaCleanupWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Media cleanup worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				metrics.WorkerRuns.WithLabelValues(mediaCleanupWorkerName, "error").Inc()
				continue
			}
			metrics.WorkerRuns.WithLabelValues(mediaCleanupWorkerName, "ok").Inc()
		}
	}
}

// RunOnce обрабатывает одну порцию и возвращает число удалённых записей.
// Запись остаётся, если объект не удалось удалить: попробуем в следующий раз.
func (w *MediaCleanupWorker) RunOnce(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.retention)
	db := w.db.WithContext(ctx)

	items, err := w.mediaRepo.FindDeletedBefore(db, cutoff, mediaCleanupBatchSize)
	if err != nil {
		logger.WorkerLog(mediaCleanupWorkerName, "find_deleted", err)
		return 0, err
	}

	purged := 0
	var firstErr error
	for _, m := range items {
		if err := ctx.Err(); err != nil {
			return purged, err
		}

		if err := w.deleteObjects(ctx, m.Path, m.ThumbnailPath); err != nil {
			logger.WorkerLog(mediaCleanupWorkerName, "delete_object", err, "media_id", m.ID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := w.mediaRepo.HardDelete(db, m.ID); err != nil {
			logger.WorkerLog(mediaCleanupWorkerName, "hard_delete", err, "media_id", m.ID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		purged++
	}

	if len(items) > 0 {
		logger.WorkerLog(mediaCleanupWorkerName, "purge", firstErr, "purged", purged, "found", len(items))
	}
	return purged, firstErr
}

func (w *MediaCleanupWorker) deleteObjects(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		// embedded-медиа объектов не имеют
		if key == "" {
			continue
		}
		if err := w.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	return nil
}
