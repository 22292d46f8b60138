package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/media"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/progress"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/storage"
	"gigboard_backend/pkg/apperrors"
	"gigboard_backend/ws"
)

const kb = 1024

type mediaFixture struct {
	svc      MediaService
	repo     *mockMediaRepo
	notifier *recordingNotifier
	progress progress.Store
	dir      string
}

func newMediaFixture(t *testing.T, withProgress bool) *mediaFixture {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: dir, BaseURL: "/uploads"})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Upload.Profiles["epk"] = config.UploadProfile{MaxSize: 4 * kb, AllowedTypes: config.EPKAccept}

	f := &mediaFixture{
		repo:     &mockMediaRepo{},
		notifier: &recordingNotifier{},
		dir:      dir,
	}
	if withProgress {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		f.progress = progress.NewRedisStore(client, time.Hour)
	}
	f.svc = NewMediaService(f.repo, store, nil, cfg, f.notifier, f.progress)
	return f
}

func (f *mediaFixture) storedFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, filepath.Base(path))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestUploadBatch_ValidatesThenUploads(t *testing.T) {
	f := newMediaFixture(t, true)
	db, _ := newTestDB(t)

	f.repo.On("GetUserStorageUsage", "u-1").Return(int64(0), nil)
	f.repo.On("Create", mock.AnythingOfType("*models.Media")).Return(nil).Twice()

	req := &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "epk",
		Files: fileHeaders(t,
			part{name: "cover.png", contentType: "image/png", data: pngBytes(t, 64, 48)},
			part{name: "demo.mp3", contentType: "audio/mpeg", data: bytes.Repeat([]byte{0xff}, 2*kb)},
			part{name: "live.mp4", contentType: "video/mp4", data: bytes.Repeat([]byte{0x00}, 5*kb)},
		),
	}

	resp, err := f.svc.UploadBatch(context.Background(), db, req)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.False(t, resp.Complete())
	require.Len(t, resp.Uploaded, 2)
	assert.Equal(t, models.MediaTypeImage, resp.Uploaded[0].Type)
	assert.Equal(t, models.MediaTypeAudio, resp.Uploaded[1].Type)
	assert.NotEmpty(t, resp.Uploaded[0].ThumbnailURL)
	assert.Empty(t, resp.Uploaded[1].ThumbnailURL)
	assert.Contains(t, resp.Uploaded[0].URL, "/uploads/media/u-1/epk/")

	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, "live.mp4", resp.Rejected[0].FileName)
	assert.Equal(t, media.ReasonFileTooLarge, resp.Rejected[0].Code)
	assert.Empty(t, resp.Failed)

	// два оригинала и превью
	assert.Len(t, f.storedFiles(t), 3)

	events := f.notifier.all()
	require.NotEmpty(t, events)
	done, ok := events[len(events)-1].(ws.UploadCompleteEvent)
	require.True(t, ok)
	assert.Equal(t, resp.BatchID, done.BatchID)
	assert.Len(t, done.MediaIDs, 2)

	snap, err := f.svc.GetBatchProgress(context.Background(), "u-1", resp.BatchID)
	require.NoError(t, err)
	assert.True(t, snap.Done)
	assert.Equal(t, 100.0, snap.Total)
	assert.Len(t, snap.Files, 2)

	_, err = f.svc.GetBatchProgress(context.Background(), "someone-else", resp.BatchID)
	assert.ErrorIs(t, err, apperrors.ErrProgressNotFound)

	f.repo.AssertExpectations(t)
}

func TestUploadBatch_ProgressIsMonotonic(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	f.repo.On("GetUserStorageUsage", "u-1").Return(int64(0), nil)
	f.repo.On("Create", mock.Anything).Return(nil)

	_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "epk",
		Files: fileHeaders(t,
			part{name: "a.txt", contentType: "text/plain", data: bytes.Repeat([]byte("a"), 3*kb)},
			part{name: "b.txt", contentType: "text/plain", data: bytes.Repeat([]byte("b"), 1*kb)},
		),
	})
	require.NoError(t, err)

	last := -1.0
	for _, e := range f.notifier.all() {
		ev, ok := e.(ws.UploadProgressEvent)
		if !ok || ev.FileID != "" {
			continue
		}
		assert.GreaterOrEqual(t, ev.Percent, last)
		last = ev.Percent
	}
	assert.Equal(t, 100.0, last)
}

func TestUploadBatch_UnknownUsage(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "mixtape",
		Files:  fileHeaders(t, part{name: "a.txt", contentType: "text/plain", data: []byte("x")}),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidUploadUsage)
}

func TestUploadBatch_NoFiles(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{UserID: "u-1", Usage: "epk"})
	assert.ErrorIs(t, err, apperrors.ErrNoFilesProvided)
}

func TestUploadBatch_SingleRejectedFileReportsReason(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "epk",
		Files:  fileHeaders(t, part{name: "big.mp4", contentType: "video/mp4", data: make([]byte, 5*kb)}),
	})
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)

	_, err = f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "epk",
		Files:  fileHeaders(t, part{name: "setup.exe", contentType: "application/x-msdownload", data: []byte("MZ")}),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)

	f.repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestUploadBatch_QuotaCheckedForWholeBatch(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	f.repo.On("GetUserStorageUsage", "u-1").Return(int64(1024*1024*1024-kb), nil)

	_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "epk",
		Files: fileHeaders(t,
			part{name: "a.txt", contentType: "text/plain", data: make([]byte, 600)},
			part{name: "b.txt", contentType: "text/plain", data: make([]byte, 600)},
		),
	})
	assert.ErrorIs(t, err, apperrors.ErrStorageLimitExceeded)
	f.repo.AssertNotCalled(t, "Create", mock.Anything)
	assert.Empty(t, f.storedFiles(t))
}

func TestUploadBatch_DatabaseFailureRemovesObjects(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	f.repo.On("GetUserStorageUsage", "u-1").Return(int64(0), nil)
	f.repo.On("Create", mock.Anything).Return(errors.New("connection reset"))

	_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "epk",
		Files:  fileHeaders(t, part{name: "cover.png", contentType: "image/png", data: pngBytes(t, 16, 16)}),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
	assert.Empty(t, f.storedFiles(t))
}

func TestGetBatchProgress_ReusedBatchIDKeepsOwnerSnapshot(t *testing.T) {
	f := newMediaFixture(t, true)
	db, _ := newTestDB(t)
	const batchID = "6f1c2d3e-4a5b-4c6d-8e7f-9a0b1c2d3e4f"

	f.repo.On("GetUserStorageUsage", mock.Anything).Return(int64(0), nil)
	f.repo.On("Create", mock.AnythingOfType("*models.Media")).Return(nil)

	upload := func(userID string, names ...string) {
		parts := make([]part, 0, len(names))
		for _, name := range names {
			parts = append(parts, part{name: name, contentType: "application/pdf", data: []byte("%PDF-1.4")})
		}
		_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
			UserID:  userID,
			Usage:   "epk",
			BatchID: batchID,
			Files:   fileHeaders(t, parts...),
		})
		require.NoError(t, err)
	}
	upload("u-1", "rider.pdf", "stage-plot.pdf")
	upload("u-2", "other.pdf")

	snap, err := f.svc.GetBatchProgress(context.Background(), "u-1", batchID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", snap.UserID)
	assert.Len(t, snap.Files, 2)

	snap, err = f.svc.GetBatchProgress(context.Background(), "u-2", batchID)
	require.NoError(t, err)
	assert.Len(t, snap.Files, 1)
}

func TestGetBatchProgress_WithoutStore(t *testing.T) {
	f := newMediaFixture(t, false)

	_, err := f.svc.GetBatchProgress(context.Background(), "u-1", "b-1")
	assert.ErrorIs(t, err, apperrors.ErrProgressUnavailable)
}

func TestGetMedia_PrivateMediaHiddenFromOthers(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	private := &models.Media{UserID: "owner", Type: models.MediaTypeDocument, IsPublic: false}
	private.ID = "m-1"
	f.repo.On("FindByID", "m-1").Return(private, nil)

	_, err := f.svc.GetMedia(db, Viewer{UserID: "stranger", Role: models.UserRoleArtist}, "m-1")
	assert.ErrorIs(t, err, apperrors.ErrMediaNotFound)

	got, err := f.svc.GetMedia(db, Viewer{UserID: "owner"}, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.ID)

	_, err = f.svc.GetMedia(db, Viewer{UserID: "admin-1", Role: models.UserRoleAdmin}, "m-1")
	assert.NoError(t, err)
}

func TestDeleteMedia(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	public := &models.Media{UserID: "owner", Type: models.MediaTypeImage, IsPublic: true}
	public.ID = "m-2"
	f.repo.On("FindByID", "m-2").Return(public, nil)
	f.repo.On("SoftDelete", "m-2").Return(nil).Once()

	err := f.svc.DeleteMedia(db, Viewer{UserID: "stranger"}, "m-2")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)

	require.NoError(t, f.svc.DeleteMedia(db, Viewer{UserID: "owner"}, "m-2"))
	f.repo.AssertExpectations(t)
}

func TestCreateEmbedded(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	f.repo.On("Create", mock.MatchedBy(func(m *models.Media) bool {
		return m.Type == models.MediaTypeEmbedded && m.StorageProvider == "external"
	})).Return(nil).Once()

	resp, err := f.svc.CreateEmbedded(db, "u-1", &dto.EmbedMediaRequest{
		URL:   "https://soundcloud.com/artist/track",
		Usage: "epk",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeEmbedded, resp.Type)
	assert.Equal(t, "https://soundcloud.com/artist/track", resp.URL)

	_, err = f.svc.CreateEmbedded(db, "u-1", &dto.EmbedMediaRequest{URL: "ftp://example.com/x", Usage: "epk"})
	require.Error(t, err)
	f.repo.AssertExpectations(t)
}

func TestOpenFile_Thumbnail(t *testing.T) {
	f := newMediaFixture(t, false)
	db, _ := newTestDB(t)

	var created *models.Media
	f.repo.On("GetUserStorageUsage", "u-1").Return(int64(0), nil)
	f.repo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(0).(*models.Media)
	}).Return(nil)

	_, err := f.svc.UploadBatch(context.Background(), db, &dto.MediaUploadRequest{
		UserID: "u-1",
		Usage:  "avatar",
		Files:  fileHeaders(t, part{name: "me.png", contentType: "image/png", data: pngBytes(t, 400, 200)}),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	f.repo.On("FindByID", created.ID).Return(created, nil)

	obj, err := f.svc.OpenFile(context.Background(), db, Viewer{UserID: "u-1"}, created.ID, true)
	require.NoError(t, err)
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.Equal(t, []byte{0xff, 0xd8}, data[:2])
}

func TestObjectKey_SeparatesPrivateObjects(t *testing.T) {
	assert.Equal(t, "media/u-1/epk/abc.png", objectKey(true, "u-1", "epk", "abc", ".png"))
	assert.Equal(t, "private/u-1/job_application/abc.pdf", objectKey(false, "u-1", "job_application", "abc", ".pdf"))
}
