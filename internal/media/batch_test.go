package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigboard_backend/internal/models"
)

// fakeStore читает тело до конца и возвращает запись; имена из failOn падают
type fakeStore struct {
	failOn map[string]bool
	// afterRead вызывается, когда тело прочитано, но запись ещё не вернулась
	afterRead func(name string)

	mu       sync.Mutex
	stored   []string
	inFlight int32
	maxSeen  int32
}

func (s *fakeStore) Store(ctx context.Context, req StoreRequest) (*models.Media, error) {
	cur := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&s.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&s.maxSeen, prev, cur) {
			break
		}
	}

	n, err := io.Copy(io.Discard, req.Body)
	if err != nil {
		return nil, err
	}
	if s.afterRead != nil {
		s.afterRead(req.File.Name())
	}
	if s.failOn[req.File.Name()] {
		return nil, fmt.Errorf("storage rejected %s", req.File.Name())
	}

	s.mu.Lock()
	s.stored = append(s.stored, req.File.Name())
	s.mu.Unlock()

	m := &models.Media{
		UserID:       req.UserID,
		Type:         req.File.Type,
		Usage:        req.Target.Usage,
		OriginalName: req.File.Name(),
		URL:          "/uploads/" + req.File.Name(),
		Size:         n,
	}
	m.ID = "media-" + req.File.Name()
	if req.File.Type == models.MediaTypeImage {
		m.ThumbnailURL = "/uploads/thumb-" + req.File.Name()
	}
	return m, nil
}

// progressLog собирает вызовы колбэков и проверяет, что они не пересекаются
type progressLog struct {
	active  int32
	overlap bool

	totals []float64
	files  map[string][]float64
}

func newProgressLog() *progressLog {
	return &progressLog{files: map[string][]float64{}}
}

func (p *progressLog) enter() {
	if atomic.AddInt32(&p.active, 1) > 1 {
		p.overlap = true
	}
}

func (p *progressLog) leave() { atomic.AddInt32(&p.active, -1) }

func (p *progressLog) onProgress(total float64) {
	p.enter()
	defer p.leave()
	p.totals = append(p.totals, total)
}

func (p *progressLog) onFileProgress(id string, pct float64) {
	p.enter()
	defer p.leave()
	p.files[id] = append(p.files[id], pct)
}

func assertMonotonic(t *testing.T, values []float64) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		assert.Greater(t, values[i], values[i-1], "progress must increase: %v", values)
	}
}

func TestUploadFiles_AllSucceed(t *testing.T) {
	files := []*MediaFile{
		NewMediaFile(NewBytesSource("cover.png", "image/png", []byte(strings.Repeat("p", 4096)))),
		NewMediaFile(NewBytesSource("single.mp3", "audio/mpeg", []byte(strings.Repeat("m", 64*1024)))),
		NewMediaFile(NewBytesSource("bio.txt", "text/plain", []byte("Berlin based trio"))),
	}
	store := &fakeStore{}
	log := newProgressLog()

	res := NewUploader(store, 2).UploadFiles(context.Background(), BatchRequest{
		BatchID:        "batch-1",
		UserID:         "user-1",
		Target:         Target{Usage: "epk"},
		MediaFiles:     files,
		OnProgress:     log.onProgress,
		OnFileProgress: log.onFileProgress,
	})

	require.True(t, res.Success)
	assert.NoError(t, res.Error)
	assert.Empty(t, res.Failed)
	require.Len(t, res.MediaItems, 3)
	for i, f := range files {
		assert.Equal(t, f.Name(), res.MediaItems[i].OriginalName, "order preserved")
		assert.True(t, f.Uploaded())
		assert.Equal(t, "/uploads/"+f.Name(), f.URL)

		got := log.files[f.ID]
		require.NotEmpty(t, got)
		assertMonotonic(t, got)
		assert.Equal(t, 100.0, got[len(got)-1])
	}
	assert.Equal(t, "/uploads/thumb-cover.png", files[0].ThumbnailURL)

	assert.False(t, log.overlap, "callbacks must be serialised")
	assertMonotonic(t, log.totals)
	assert.Equal(t, 100.0, log.totals[len(log.totals)-1])
	assert.LessOrEqual(t, store.maxSeen, int32(2))
}

func TestUploadFiles_TotalHoldsBelowFullUntilStored(t *testing.T) {
	files := []*MediaFile{
		NewMediaFile(NewBytesSource("a.png", "image/png", []byte(strings.Repeat("a", 2048)))),
		NewMediaFile(NewBytesSource("b.mp3", "audio/mpeg", []byte(strings.Repeat("b", 2048)))),
	}
	log := newProgressLog()
	var beforeStored []float64
	store := &fakeStore{afterRead: func(name string) {
		if name == "b.mp3" {
			beforeStored = append(beforeStored, log.totals...)
		}
	}}

	res := NewUploader(store, 1).UploadFiles(context.Background(), BatchRequest{
		MediaFiles:     files,
		OnProgress:     log.onProgress,
		OnFileProgress: log.onFileProgress,
	})
	require.True(t, res.Success)

	// последний файл прочитан целиком, но ещё не сохранён
	require.NotEmpty(t, beforeStored)
	for _, pct := range beforeStored {
		assert.Less(t, pct, 100.0)
	}
	assert.Equal(t, 100.0, log.totals[len(log.totals)-1])
	assertMonotonic(t, log.totals)
}

func TestUploadFiles_PartialFailureContinues(t *testing.T) {
	files := []*MediaFile{
		NewMediaFile(NewBytesSource("a.png", "image/png", []byte("aaaa"))),
		NewMediaFile(NewBytesSource("broken.mp3", "audio/mpeg", []byte("bbbb"))),
		NewMediaFile(NewBytesSource("c.mp4", "video/mp4", []byte("cccc"))),
	}
	store := &fakeStore{failOn: map[string]bool{"broken.mp3": true}}
	log := newProgressLog()

	res := NewUploader(store, 1).UploadFiles(context.Background(), BatchRequest{
		MediaFiles:     files,
		OnProgress:     log.onProgress,
		OnFileProgress: log.onFileProgress,
	})

	assert.False(t, res.Success)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "1 of 3")
	require.Len(t, res.MediaItems, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, files[1].ID, res.Failed[0].FileID)
	assert.Equal(t, "broken.mp3", res.Failed[0].FileName)

	assert.False(t, files[1].Uploaded())
	for _, pct := range log.files[files[1].ID] {
		assert.Less(t, pct, 100.0, "failed file never reports completion")
	}
	assert.ElementsMatch(t, []string{"a.png", "c.mp4"}, store.stored)
	assert.Equal(t, 100.0, log.totals[len(log.totals)-1])
}

func TestUploadFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []*MediaFile{
		NewMediaFile(NewBytesSource("a.png", "image/png", []byte("aaaa"))),
		NewMediaFile(NewBytesSource("b.png", "image/png", []byte("bbbb"))),
	}
	res := NewUploader(&fakeStore{}, 3).UploadFiles(ctx, BatchRequest{MediaFiles: files})

	assert.False(t, res.Success)
	assert.Empty(t, res.MediaItems)
	require.Len(t, res.Failed, 2)
	for _, f := range res.Failed {
		assert.True(t, errors.Is(f.Err, context.Canceled))
	}
}

func TestUploadFiles_EmptyBatch(t *testing.T) {
	res := NewUploader(&fakeStore{}, 0).UploadFiles(context.Background(), BatchRequest{})
	assert.True(t, res.Success)
	assert.Empty(t, res.MediaItems)
	assert.Empty(t, res.Failed)
}

// Выбрано три файла: картинка на 11 МБ (лимит 10), видео и аудио.
// Валидация отсеивает картинку, загружаются ровно два остальных.
func TestIntakeScenario_ValidateThenUpload(t *testing.T) {
	image := NewMediaFile(sizedSource{name: "poster.jpg", contentType: "image/jpeg", size: 11 * mb})
	video := NewMediaFile(sizedSource{name: "live.mp4", contentType: "video/mp4", size: 3 * mb})
	audio := NewMediaFile(sizedSource{name: "demo.mp3", contentType: "audio/mpeg", size: 2 * mb})

	valid, invalid := ValidateFiles([]*MediaFile{image, video, audio}, epkConstraints)
	require.Len(t, valid, 2)
	require.Len(t, invalid, 1)
	assert.Same(t, image, invalid[0].File)
	assert.Equal(t, ReasonFileTooLarge, invalid[0].Code)

	store := &fakeStore{}
	log := newProgressLog()
	res := NewUploader(store, DefaultConcurrency).UploadFiles(context.Background(), BatchRequest{
		UserID:         "artist-1",
		Target:         Target{Usage: "epk"},
		MediaFiles:     valid,
		OnProgress:     log.onProgress,
		OnFileProgress: log.onFileProgress,
	})

	require.True(t, res.Success)
	assert.ElementsMatch(t, []string{"live.mp4", "demo.mp3"}, store.stored)
	require.Len(t, res.MediaItems, 2)
	assert.Equal(t, models.MediaTypeVideo, res.MediaItems[0].Type)
	assert.Equal(t, models.MediaTypeAudio, res.MediaItems[1].Type)

	assert.NotContains(t, log.files, image.ID)
	for _, f := range []*MediaFile{video, audio} {
		got := log.files[f.ID]
		require.NotEmpty(t, got)
		assertMonotonic(t, got)
		assert.Equal(t, 100.0, got[len(got)-1])
	}
	assertMonotonic(t, log.totals)
	assert.Equal(t, 100.0, log.totals[len(log.totals)-1])
	assert.False(t, image.Uploaded())
}
