package apperrors

import (
	"net/http"
)

// =========================================================================
// Фабричные ФУНКЦИИ
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrDatabase оборачивает ошибку БД (500)
func ErrDatabase(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "database", "Database error", http.StatusInternalServerError)
}

// ErrStorage оборачивает ошибку хранилища (500)
func ErrStorage(err error) *AppError {
	return Wrap(err, CodeStorageError, "storage", "Storage error", http.StatusInternalServerError)
}

// ErrInvalidStatus - фабрика для невалидных статусов (400)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ
// =========================================================================

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// --- Media ---

var ErrFileTooLarge = New(
	CodeFileTooLarge,
	"media",
	"File is too large",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeInvalidFileType,
	"media",
	"File type is not allowed",
	http.StatusUnsupportedMediaType,
)

var ErrInvalidUploadUsage = New(
	CodeValidationFailed,
	"media",
	"Unknown upload usage",
	http.StatusBadRequest,
)

var ErrStorageLimitExceeded = New(
	CodeLimitExceeded,
	"media",
	"Storage limit exceeded",
	http.StatusForbidden,
)

var ErrNoFilesProvided = New(
	CodeValidationFailed,
	"media",
	"No files provided",
	http.StatusBadRequest,
)

// ErrNoFilesAccepted - ни один файл пакета не прошёл валидацию
var ErrNoFilesAccepted = New(
	CodeValidationFailed,
	"media",
	"None of the files passed validation",
	http.StatusUnprocessableEntity,
)

// ErrUploadFailed - файлы прошли валидацию, но ни один не удалось сохранить
var ErrUploadFailed = New(
	CodeUploadFailed,
	"media",
	"All files failed to upload",
	http.StatusBadGateway,
)

var ErrMediaNotFound = New(
	CodeNotFound,
	"media",
	"Media not found",
	http.StatusNotFound,
)

var ErrProgressNotFound = New(
	CodeNotFound,
	"media",
	"Upload batch not found",
	http.StatusNotFound,
)

var ErrProgressUnavailable = New(
	CodeUnavailable,
	"media",
	"Upload progress tracking is not configured",
	http.StatusServiceUnavailable,
)

var ErrSignedURLUnsupported = New(
	CodeInvalidOperation,
	"media",
	"Signed URLs are not supported by the storage backend",
	http.StatusNotImplemented,
)

// --- Applications & screening ---

var ErrApplicationNotFound = New(
	CodeNotFound,
	"application",
	"Application not found",
	http.StatusNotFound,
)

var ErrJobPostingNotFound = New(
	CodeNotFound,
	"job_posting",
	"Job posting not found",
	http.StatusNotFound,
)

var ErrInvalidStatusTransition = New(
	CodeInvalidStatus,
	"application",
	"Invalid application status transition",
	http.StatusConflict,
)
