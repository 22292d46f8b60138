package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	log  *slog.Logger
	once sync.Once
)

// Init инициализирует глобальный логгер
// env: "development" или "production"
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

// InitWithWriter - то же, что Init, но с произвольным выводом (нужно тестам)
func InitWithWriter(env string, w io.Writer) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}

	switch env {
	case "development":
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	case "test":
		opts.Level = slog.LevelWarn
		opts.AddSource = false
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	once.Do(func() {
		if log == nil {
			Init("development")
		}
	})
	return log
}

// ============================================
// Convenience функции для быстрого логирования
// ============================================

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует fatal ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// With создает новый логгер с дополнительными полями
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// WithError создает логгер с полем error
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}

// ============================================
// Специализированные логгеры
// ============================================

// WorkerLog логирует background worker операцию
func WorkerLog(worker, operation string, err error, args ...any) {
	fields := append([]any{
		"worker", worker,
		"operation", operation,
	}, args...)

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("worker operation failed", fields...)
	} else {
		GetLogger().Info("worker operation completed", fields...)
	}
}

// UploadLog логирует итог загрузки одного файла пакета
func UploadLog(batchID, fileName string, size int64, duration time.Duration, err error) {
	fields := []any{
		"batch_id", batchID,
		"file", fileName,
		"size_bytes", size,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Warn("file upload failed", fields...)
	} else {
		GetLogger().Debug("file uploaded", fields...)
	}
}
