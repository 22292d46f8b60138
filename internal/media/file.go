package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"gigboard_backend/internal/models"
)

// FileSource - откуда берутся байты файла: multipart-часть запроса или буфер.
// Open можно вызывать повторно (оригинал, затем превью).
type FileSource interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// MediaFile - файл, выбранный для загрузки. До успешной загрузки у него
// только клиентский ID; URL, ThumbnailURL и Duration заполняются после.
type MediaFile struct {
	ID           string
	File         FileSource
	Type         models.MediaType
	URL          string
	ThumbnailURL string
	Duration     *float64
	FileSize     int64
	AltText      string

	// MediaID - ID сохранённой записи Media, пусто до загрузки
	MediaID string
}

func NewMediaFile(src FileSource) *MediaFile {
	return &MediaFile{
		ID:       uuid.NewString(),
		File:     src,
		Type:     DetectMediaType(src.ContentType()),
		FileSize: src.Size(),
	}
}

// NewEmbeddedMedia создаёт запись для внешней ссылки (YouTube, SoundCloud и т.п.)
func NewEmbeddedMedia(rawURL, altText string) (*MediaFile, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid embed url %q", rawURL)
	}
	return &MediaFile{
		ID:      uuid.NewString(),
		Type:    models.MediaTypeEmbedded,
		URL:     u.String(),
		AltText: altText,
	}, nil
}

func (f *MediaFile) Name() string {
	if f.File == nil {
		return f.URL
	}
	return f.File.Name()
}

func (f *MediaFile) ContentType() string {
	if f.File == nil {
		return ""
	}
	return f.File.ContentType()
}

// Backfill переносит данные сохранённой записи в файл
func (f *MediaFile) Backfill(m *models.Media) {
	f.MediaID = m.ID
	f.URL = m.URL
	f.ThumbnailURL = m.ThumbnailURL
	f.Duration = m.DurationSeconds
}

func (f *MediaFile) Uploaded() bool {
	return f.MediaID != ""
}

// ============================================
// Источники
// ============================================

type multipartSource struct {
	header      *multipart.FileHeader
	contentType string
}

// FromMultipart оборачивает часть multipart-формы. Если клиент не прислал
// Content-Type (или прислал octet-stream), тип определяется по содержимому.
func FromMultipart(header *multipart.FileHeader) (FileSource, error) {
	declared := header.Header.Get("Content-Type")
	ct := normalizeContentType(declared)
	if ct == "" || ct == octetStream {
		head, err := readHead(header)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Filename, err)
		}
		declared = ResolveContentType(declared, header.Filename, head)
	}
	return &multipartSource{header: header, contentType: normalizeContentType(declared)}, nil
}

func (s *multipartSource) Name() string        { return s.header.Filename }
func (s *multipartSource) Size() int64         { return s.header.Size }
func (s *multipartSource) ContentType() string { return s.contentType }

func (s *multipartSource) Open() (io.ReadCloser, error) {
	return s.header.Open()
}

func readHead(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

type bytesSource struct {
	name        string
	contentType string
	data        []byte
}

// NewBytesSource - источник из памяти
func NewBytesSource(name, contentType string, data []byte) FileSource {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return &bytesSource{
		name:        name,
		contentType: ResolveContentType(contentType, name, head),
		data:        data,
	}
}

func (s *bytesSource) Name() string        { return s.name }
func (s *bytesSource) Size() int64         { return int64(len(s.data)) }
func (s *bytesSource) ContentType() string { return s.contentType }

func (s *bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
