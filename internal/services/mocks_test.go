package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/types"
)

// ---- repositories ----

type mockMediaRepo struct{ mock.Mock }

func (m *mockMediaRepo) Create(db *gorm.DB, media *models.Media) error {
	return m.Called(media).Error(0)
}

func (m *mockMediaRepo) FindByID(db *gorm.DB, id string) (*models.Media, error) {
	args := m.Called(id)
	media, _ := args.Get(0).(*models.Media)
	return media, args.Error(1)
}

func (m *mockMediaRepo) FindByUser(db *gorm.DB, userID string, filters *types.MediaFilters) ([]*models.Media, int64, error) {
	args := m.Called(userID, filters)
	items, _ := args.Get(0).([]*models.Media)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockMediaRepo) SoftDelete(db *gorm.DB, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockMediaRepo) GetUserStorageUsage(db *gorm.DB, userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMediaRepo) FindDeletedBefore(db *gorm.DB, before time.Time, limit int) ([]*models.Media, error) {
	args := m.Called(before, limit)
	items, _ := args.Get(0).([]*models.Media)
	return items, args.Error(1)
}

func (m *mockMediaRepo) HardDelete(db *gorm.DB, id string) error {
	return m.Called(id).Error(0)
}

type mockApplicationRepo struct{ mock.Mock }

func (m *mockApplicationRepo) FindByID(db *gorm.DB, id string) (*models.JobApplication, error) {
	args := m.Called(id)
	app, _ := args.Get(0).(*models.JobApplication)
	return app, args.Error(1)
}

func (m *mockApplicationRepo) List(db *gorm.DB, filters *types.ApplicationFilters) ([]models.JobApplication, error) {
	args := m.Called(filters)
	apps, _ := args.Get(0).([]models.JobApplication)
	return apps, args.Error(1)
}

func (m *mockApplicationRepo) UpdateStatus(db *gorm.DB, id string, update repositories.StatusUpdate) error {
	return m.Called(id, update).Error(0)
}

type mockPostingRepo struct{ mock.Mock }

func (m *mockPostingRepo) FindByID(db *gorm.DB, id string) (*models.JobPosting, error) {
	args := m.Called(id)
	p, _ := args.Get(0).(*models.JobPosting)
	return p, args.Error(1)
}

func (m *mockPostingRepo) FindByIDs(db *gorm.DB, ids []string) (map[string]*models.JobPosting, error) {
	args := m.Called(ids)
	p, _ := args.Get(0).(map[string]*models.JobPosting)
	return p, args.Error(1)
}

// ---- notifier ----

type recordingNotifier struct {
	mu     sync.Mutex
	events []any
}

func (n *recordingNotifier) SendToUser(userID string, message any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, message)
}

func (n *recordingNotifier) all() []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]any(nil), n.events...)
}

// ---- helpers ----

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, sm
}

type part struct {
	name        string
	contentType string
	data        []byte
}

// fileHeaders собирает multipart-форму и возвращает заголовки поля "files"
func fileHeaders(t *testing.T, parts ...part) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
