package media

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigboard_backend/internal/models"
)

const mb = 1024 * 1024

// sizedSource сообщает произвольный размер, не держа байты в памяти
type sizedSource struct {
	name        string
	contentType string
	size        int64
}

func (s sizedSource) Name() string        { return s.name }
func (s sizedSource) Size() int64         { return s.size }
func (s sizedSource) ContentType() string { return s.contentType }
func (s sizedSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(io.LimitReader(zeroReader{}, s.size)), nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func sized(name, ct string, size int64) *MediaFile {
	return NewMediaFile(sizedSource{name: name, contentType: ct, size: size})
}

var epkConstraints = Constraints{
	MaxFileSize:  10 * mb,
	AllowedTypes: []string{"image/*", "video/*", "audio/*", ".pdf", ".doc", ".docx", ".txt"},
}

func TestValidateMediaFile_SizeCheckedFirst(t *testing.T) {
	// и тип запрещён, и размер превышен: причина всегда размер
	f := sized("setlist.exe", "application/x-msdownload", 11*mb)

	res := ValidateMediaFile(f, epkConstraints)

	assert.False(t, res.Valid)
	assert.Equal(t, ReasonFileTooLarge, res.Code)
	assert.Contains(t, res.Reason, "setlist.exe")
	assert.Contains(t, res.Reason, "10 MiB")
}

func TestValidateMediaFile_Types(t *testing.T) {
	cases := []struct {
		name  string
		file  *MediaFile
		valid bool
	}{
		{"wildcard image", sized("cover.webp", "image/webp", mb), true},
		{"wildcard audio", sized("demo.flac", "audio/flac", mb), true},
		{"extension entry", sized("rider.pdf", "application/pdf", mb), true},
		{"extension case insensitive", sized("BIO.TXT", "text/plain", 10), true},
		{"not allowed", sized("tool.exe", "application/x-msdownload", 10), false},
		{"zip not allowed", sized("stems.zip", "application/zip", 10), false},
		{"exactly at limit", sized("big.mp4", "video/mp4", 10*mb), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateMediaFile(tc.file, epkConstraints)
			assert.Equal(t, tc.valid, res.Valid, res.Reason)
			if !tc.valid {
				assert.Equal(t, ReasonTypeNotAllowed, res.Code)
			}
		})
	}
}

func TestValidateMediaFile_EmptyAllowListAcceptsAnything(t *testing.T) {
	res := ValidateMediaFile(sized("x.bin", "application/octet-stream", 1), Constraints{MaxFileSize: 10})
	assert.True(t, res.Valid)
}

func TestConstraints_ExactEntries(t *testing.T) {
	c := Constraints{AllowedTypes: []string{"image/png", "image/jpeg"}}
	assert.True(t, c.Allows("image/png", "a.png"))
	assert.True(t, c.Allows("IMAGE/JPEG; q=1", "a.jpg"))
	assert.False(t, c.Allows("image/gif", "a.gif"))
}

func TestValidateFiles_Partition(t *testing.T) {
	files := []*MediaFile{
		sized("a.png", "image/png", mb),
		sized("b.exe", "application/x-msdownload", mb),
		sized("c.mp3", "audio/mpeg", 20*mb),
		sized("d.mp3", "audio/mpeg", mb),
		sized("a.png", "image/png", mb), // дубликаты не схлопываются
	}

	valid, invalid := ValidateFiles(files, epkConstraints)

	require.Len(t, valid, 3)
	require.Len(t, invalid, 2)
	assert.Equal(t, len(files), len(valid)+len(invalid))

	assert.Same(t, files[0], valid[0])
	assert.Same(t, files[3], valid[1])
	assert.Same(t, files[4], valid[2])

	assert.Same(t, files[1], invalid[0].File)
	assert.Equal(t, ReasonTypeNotAllowed, invalid[0].Code)
	assert.Same(t, files[2], invalid[1].File)
	assert.Equal(t, ReasonFileTooLarge, invalid[1].Code)

	seen := map[*MediaFile]int{}
	for _, f := range valid {
		seen[f]++
	}
	for _, f := range invalid {
		seen[f.File]++
	}
	for _, f := range files {
		assert.Equal(t, 1, seen[f], f.Name())
	}
}

func TestValidateFiles_Empty(t *testing.T) {
	valid, invalid := ValidateFiles(nil, epkConstraints)
	assert.Empty(t, valid)
	assert.Empty(t, invalid)
}

func TestNewMediaFile_DetectsType(t *testing.T) {
	f := NewMediaFile(NewBytesSource("track", "", []byte(strings.Repeat("a", 10))))
	assert.Equal(t, models.MediaTypeDocument, f.Type)
	assert.EqualValues(t, 10, f.FileSize)

	f = NewMediaFile(NewBytesSource("track.mp3", "", []byte{0x00}))
	assert.Equal(t, models.MediaTypeAudio, f.Type)
}
