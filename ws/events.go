package ws

// Типы событий, которые сервер шлёт клиенту
const (
	EventUploadProgress = "upload_progress"
	EventUploadComplete = "upload_complete"
)

// UploadProgressEvent - прогресс пакета; FileID пуст для общего прогресса
type UploadProgressEvent struct {
	Type    string  `json:"type"`
	BatchID string  `json:"batch_id"`
	FileID  string  `json:"file_id,omitempty"`
	Percent float64 `json:"percent"`
}

type UploadCompleteEvent struct {
	Type     string   `json:"type"`
	BatchID  string   `json:"batch_id"`
	Success  bool     `json:"success"`
	MediaIDs []string `json:"media_ids"`
	Failed   int      `json:"failed"`
}
