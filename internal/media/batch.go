package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
)

const DefaultConcurrency = 3

// Target - куда относится загружаемый пакет
type Target struct {
	Usage      string
	EntityType string
	EntityID   string
	IsPublic   bool
}

type BatchRequest struct {
	BatchID        string
	UserID         string
	Target         Target
	MediaFiles     []*MediaFile
	OnProgress     ProgressFunc
	OnFileProgress FileProgressFunc
}

// FileError - ошибка загрузки конкретного файла
type FileError struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Error    string `json:"error"`
	Err      error  `json:"-"`
}

type BatchResult struct {
	BatchID string
	// Success - true только если загружены все файлы
	Success    bool
	MediaItems []*models.Media
	Failed     []FileError
	Error      error
}

// StoreRequest - один файл пакета. Body нужно прочитать до конца:
// по нему считается прогресс.
type StoreRequest struct {
	BatchID string
	UserID  string
	Target  Target
	File    *MediaFile
	Body    io.Reader
}

// FileStore сохраняет один файл (объект в хранилище, превью, запись в БД)
type FileStore interface {
	Store(ctx context.Context, req StoreRequest) (*models.Media, error)
}

// Uploader загружает пакет файлов с ограниченным параллелизмом.
// Ошибка одного файла не прерывает остальные.
type Uploader struct {
	store       FileStore
	concurrency int
}

func NewUploader(store FileStore, concurrency int) *Uploader {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Uploader{store: store, concurrency: concurrency}
}

// UploadFiles загружает все файлы запроса. MediaItems идут в порядке входных
// файлов; успешно загруженные MediaFile дозаполняются (URL, превью, длительность).
// Отмена контекста прерывает ещё не завершённые файлы.
func (u *Uploader) UploadFiles(ctx context.Context, req BatchRequest) *BatchResult {
	result := &BatchResult{BatchID: req.BatchID, Success: true}
	if len(req.MediaFiles) == 0 {
		return result
	}

	tracker := newProgressTracker(req.MediaFiles, req.OnProgress, req.OnFileProgress)
	items := make([]*models.Media, len(req.MediaFiles))
	errs := make([]error, len(req.MediaFiles))

	var g errgroup.Group
	g.SetLimit(u.concurrency)

	for i, file := range req.MediaFiles {
		g.Go(func() error {
			items[i], errs[i] = u.uploadOne(ctx, req, file, tracker)
			tracker.finish(file.ID, errs[i] == nil)
			return nil
		})
	}
	_ = g.Wait()
	tracker.complete()

	for i, file := range req.MediaFiles {
		if errs[i] != nil {
			result.Failed = append(result.Failed, FileError{
				FileID:   file.ID,
				FileName: file.Name(),
				Error:    errs[i].Error(),
				Err:      errs[i],
			})
			continue
		}
		file.Backfill(items[i])
		result.MediaItems = append(result.MediaItems, items[i])
	}

	if len(result.Failed) > 0 {
		result.Success = false
		result.Error = fmt.Errorf("%d of %d files failed to upload", len(result.Failed), len(req.MediaFiles))
	}
	return result
}

func (u *Uploader) uploadOne(ctx context.Context, req BatchRequest, file *MediaFile, tracker *progressTracker) (*models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if file.File == nil {
		return nil, errors.New("file has no content")
	}

	start := time.Now()
	rc, err := file.File.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer rc.Close()

	body := &countingReader{
		ctx: ctx,
		r:   rc,
		onRead: func(n int64) {
			tracker.advance(file.ID, n)
		},
	}

	m, err := u.store.Store(ctx, StoreRequest{
		BatchID: req.BatchID,
		UserID:  req.UserID,
		Target:  req.Target,
		File:    file,
		Body:    body,
	})
	if err == nil && m == nil {
		err = errors.New("store returned no media record")
	}
	logger.UploadLog(req.BatchID, file.Name(), file.FileSize, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return m, nil
}
