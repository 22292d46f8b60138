package media

import (
	"context"
	"io"
	"sync"
)

// ProgressFunc получает общий прогресс пакета в процентах (0..100)
type ProgressFunc func(totalPercent float64)

// FileProgressFunc получает прогресс одного файла в процентах (0..100)
type FileProgressFunc func(fileID string, percent float64)

// progressTracker считает прогресс по байтам. Общий прогресс взвешен по
// размерам файлов; завершённый файл (успешно или нет) засчитывается целиком.
// Колбэки вызываются под мьютексом, поэтому никогда не выполняются параллельно.
type progressTracker struct {
	mu sync.Mutex

	sizes map[string]int64
	read  map[string]int64
	total int64

	lastFile  map[string]float64
	lastTotal float64

	onProgress     ProgressFunc
	onFileProgress FileProgressFunc
}

func newProgressTracker(files []*MediaFile, onProgress ProgressFunc, onFileProgress FileProgressFunc) *progressTracker {
	t := &progressTracker{
		sizes:          make(map[string]int64, len(files)),
		read:           make(map[string]int64, len(files)),
		lastFile:       make(map[string]float64, len(files)),
		lastTotal:      -1,
		onProgress:     onProgress,
		onFileProgress: onFileProgress,
	}
	for _, f := range files {
		size := f.FileSize
		if size < 0 {
			size = 0
		}
		t.sizes[f.ID] = size
		t.total += size
	}
	return t
}

// advance учитывает n прочитанных байт файла. До finish файл не
// может показать 100%: байты прочитаны, но запись ещё не сохранена.
func (t *progressTracker) advance(fileID string, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	size := t.sizes[fileID]
	read := t.read[fileID] + n
	if read > size {
		read = size
	}
	t.read[fileID] = read

	if size > 0 {
		pct := float64(read) / float64(size) * 100
		if pct > 99 {
			pct = 99
		}
		t.emitFile(fileID, pct)
	}
	t.emitTotal()
}

// finish отмечает файл обработанным
func (t *progressTracker) finish(fileID string, succeeded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.read[fileID] = t.sizes[fileID]
	if succeeded {
		t.emitFile(fileID, 100)
	}
	t.emitTotal()
}

// complete фиксирует 100% для пакета в целом
func (t *progressTracker) complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastTotal < 100 {
		t.lastTotal = 100
		if t.onProgress != nil {
			t.onProgress(100)
		}
	}
}

func (t *progressTracker) emitFile(fileID string, pct float64) {
	last, seen := t.lastFile[fileID]
	if seen && pct <= last {
		return
	}
	t.lastFile[fileID] = pct
	if t.onFileProgress != nil {
		t.onFileProgress(fileID, pct)
	}
}

func (t *progressTracker) emitTotal() {
	if t.total == 0 {
		return
	}
	var done int64
	for _, n := range t.read {
		done += n
	}
	pct := float64(done) / float64(t.total) * 100
	// все байты прочитаны, но запись файлов ещё может упасть: 100% ставит complete
	if pct > 99 {
		pct = 99
	}
	if pct <= t.lastTotal {
		return
	}
	t.lastTotal = pct
	if t.onProgress != nil {
		t.onProgress(pct)
	}
}

// countingReader сообщает о каждом прочитанном куске и прерывает
// чтение при отмене контекста.
type countingReader struct {
	ctx    context.Context
	r      io.Reader
	onRead func(n int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if n > 0 {
		c.onRead(int64(n))
	}
	return n, err
}
