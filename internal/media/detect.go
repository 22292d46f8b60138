package media

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"gigboard_backend/internal/models"
)

const octetStream = "application/octet-stream"

// sniffLen - сколько первых байт читаем для определения типа
const sniffLen = 3072

// DetectMediaType классифицирует файл по префиксу MIME-типа.
// Содержимое не анализируется; embedded здесь не возникает никогда.
func DetectMediaType(contentType string) models.MediaType {
	ct := normalizeContentType(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.MediaTypeImage
	case strings.HasPrefix(ct, "video/"):
		return models.MediaTypeVideo
	case strings.HasPrefix(ct, "audio/"):
		return models.MediaTypeAudio
	default:
		return models.MediaTypeDocument
	}
}

// ResolveContentType выбирает MIME-тип файла: заявленный клиентом,
// затем по сигнатуре первых байт, затем по расширению.
func ResolveContentType(declared, filename string, head []byte) string {
	if ct := normalizeContentType(declared); ct != "" && ct != octetStream {
		return ct
	}

	var sniffed string
	if len(head) > 0 {
		sniffed = normalizeContentType(mimetype.Detect(head).String())
	}
	if sniffed != "" && sniffed != octetStream && sniffed != "text/plain" {
		return sniffed
	}

	if byExt := contentTypeFromFilename(filename); byExt != octetStream {
		return byExt
	}

	// text/plain от сниффера - последний вариант
	if sniffed != "" {
		return sniffed
	}
	return octetStream
}

// normalizeContentType убирает параметры (; charset=...) и приводит к нижнему регистру
func normalizeContentType(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		return strings.ToLower(parsed)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

func contentTypeFromFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	return octetStream
}

// ExtensionFor возвращает расширение для сохранения объекта в хранилище
func ExtensionFor(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if m := mimetype.Lookup(normalizeContentType(contentType)); m != nil {
		return m.Extension()
	}
	return ""
}
