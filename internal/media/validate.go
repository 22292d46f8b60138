package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// Constraints - ограничения на файлы одного вида загрузки.
// AllowedTypes принимает то же, что атрибут accept у <input type="file">:
// точные типы (image/png), семейства (image/*) и расширения (.pdf).
// Пустой список - любой тип.
type Constraints struct {
	MaxFileSize  int64
	AllowedTypes []string
}

type ReasonCode string

const (
	ReasonFileTooLarge   ReasonCode = "file_too_large"
	ReasonTypeNotAllowed ReasonCode = "type_not_allowed"
)

type ValidationResult struct {
	Valid  bool
	Code   ReasonCode
	Reason string
}

// InvalidFile - файл, не прошедший валидацию, с причиной
type InvalidFile struct {
	File   *MediaFile
	Code   ReasonCode
	Reason string
}

// ValidateMediaFile проверяет один файл. Размер проверяется первым:
// слишком большой файл отклоняется по размеру независимо от типа.
func ValidateMediaFile(file *MediaFile, c Constraints) ValidationResult {
	if c.MaxFileSize > 0 && file.FileSize > c.MaxFileSize {
		return ValidationResult{
			Code: ReasonFileTooLarge,
			Reason: fmt.Sprintf("%s is %s, the limit is %s",
				file.Name(), humanize.IBytes(uint64(file.FileSize)), humanize.IBytes(uint64(c.MaxFileSize))),
		}
	}

	if !c.Allows(file.ContentType(), file.Name()) {
		return ValidationResult{
			Code:   ReasonTypeNotAllowed,
			Reason: fmt.Sprintf("%s has type %s which is not allowed", file.Name(), displayType(file.ContentType())),
		}
	}

	return ValidationResult{Valid: true}
}

// ValidateFiles разбивает список на валидные и невалидные, сохраняя порядок.
// Каждый файл попадает ровно в один из списков.
func ValidateFiles(files []*MediaFile, c Constraints) ([]*MediaFile, []InvalidFile) {
	valid := make([]*MediaFile, 0, len(files))
	var invalid []InvalidFile

	for _, f := range files {
		res := ValidateMediaFile(f, c)
		if res.Valid {
			valid = append(valid, f)
			continue
		}
		invalid = append(invalid, InvalidFile{File: f, Code: res.Code, Reason: res.Reason})
	}

	return valid, invalid
}

// Allows проверяет MIME-тип (и расширение имени) по списку разрешённых
func (c Constraints) Allows(contentType, filename string) bool {
	if len(c.AllowedTypes) == 0 {
		return true
	}

	ct := normalizeContentType(contentType)
	ext := strings.ToLower(filepath.Ext(filename))

	for _, raw := range c.AllowedTypes {
		entry := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case entry == "":
			continue
		case entry == "*" || entry == "*/*":
			return true
		case strings.HasPrefix(entry, "."):
			if ext == entry {
				return true
			}
		case strings.HasSuffix(entry, "/*"):
			if ct != "" && strings.HasPrefix(ct, strings.TrimSuffix(entry, "*")) {
				return true
			}
		default:
			if ct == entry {
				return true
			}
		}
	}
	return false
}

func displayType(contentType string) string {
	if ct := normalizeContentType(contentType); ct != "" {
		return ct
	}
	return "unknown"
}
