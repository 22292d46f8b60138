package services

import (
	"context"
	"math"
	"sync"
	"time"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/media"
	"gigboard_backend/internal/progress"
	"gigboard_backend/ws"
)

// progressPublisher рассылает прогресс пакета владельцу по websocket и
// сохраняет снимок в progress.Store для опроса. Публикуем только при
// изменении целого процента.
type progressPublisher struct {
	ctx      context.Context
	notifier ProgressNotifier
	store    progress.Store

	mu       sync.Mutex
	snap     progress.Snapshot
	lastTot  int
	lastFile map[string]int
}

func newProgressPublisher(ctx context.Context, batchID, userID string, files []*media.MediaFile, notifier ProgressNotifier, store progress.Store) *progressPublisher {
	p := &progressPublisher{
		ctx:      ctx,
		notifier: notifier,
		store:    store,
		lastTot:  -1,
		lastFile: make(map[string]int, len(files)),
		snap: progress.Snapshot{
			BatchID: batchID,
			UserID:  userID,
			Files:   make(map[string]float64, len(files)),
		},
	}
	for _, f := range files {
		p.snap.Files[f.ID] = 0
		p.lastFile[f.ID] = -1
	}
	return p
}

// start сохраняет нулевой снимок, чтобы опрос сразу находил пакет
func (p *progressPublisher) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.save()
}

func (p *progressPublisher) onFileProgress(fileID string, percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snap.Files[fileID] = percent
	whole := int(math.Floor(percent))
	if whole == p.lastFile[fileID] {
		return
	}
	p.lastFile[fileID] = whole
	p.send(ws.UploadProgressEvent{
		Type:    ws.EventUploadProgress,
		BatchID: p.snap.BatchID,
		FileID:  fileID,
		Percent: percent,
	})
}

func (p *progressPublisher) onProgress(total float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snap.Total = total
	whole := int(math.Floor(total))
	if whole == p.lastTot {
		return
	}
	p.lastTot = whole
	p.send(ws.UploadProgressEvent{
		Type:    ws.EventUploadProgress,
		BatchID: p.snap.BatchID,
		Percent: total,
	})
	p.save()
}

func (p *progressPublisher) finish(result *media.BatchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snap.Done = true
	p.snap.Failed = len(result.Failed)
	p.save()

	ids := make([]string, 0, len(result.MediaItems))
	for _, m := range result.MediaItems {
		ids = append(ids, m.ID)
	}
	p.send(ws.UploadCompleteEvent{
		Type:     ws.EventUploadComplete,
		BatchID:  p.snap.BatchID,
		Success:  result.Success,
		MediaIDs: ids,
		Failed:   len(result.Failed),
	})
}

func (p *progressPublisher) send(event any) {
	if p.notifier != nil {
		p.notifier.SendToUser(p.snap.UserID, event)
	}
}

// save вызывается под mu
func (p *progressPublisher) save() {
	if p.store == nil {
		return
	}

	snap := p.snap
	snap.Files = make(map[string]float64, len(p.snap.Files))
	for id, pct := range p.snap.Files {
		snap.Files[id] = pct
	}
	snap.UpdatedAt = time.Now().UTC()

	// итог пакета пишем даже если клиент уже отключился
	ctx := p.ctx
	if snap.Done {
		ctx = context.WithoutCancel(ctx)
	}
	if err := p.store.Save(ctx, &snap); err != nil {
		logger.CtxWarn(p.ctx, "failed to save upload progress", "error", err.Error())
	}
}
