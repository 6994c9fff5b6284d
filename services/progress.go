package services

import (
	"context"

	"github.com/yashrajoria/catalog-import/providers"
)

// Progress stages.
const (
	StageFetching   = "fetching"
	StageProcessing = "processing"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// ProgressEvent is sent on ImportOptions.Events while a run progresses.
type ProgressEvent struct {
	Resource string `json:"resource"`
	Stage    string `json:"stage"`
	Message  string `json:"message,omitempty"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	// Percent is the overall 0..100 progress; a full import maps collections
	// to 0..50 and products to 50..100.
	Percent int `json:"percent"`
}

// progressScale maps a track's own 0..100 onto a slice of the overall bar.
type progressScale struct {
	offset, span int
}

var fullScale = progressScale{offset: 0, span: 100}

func (s progressScale) percent(current, total int) int {
	if total <= 0 {
		return s.offset
	}
	return s.offset + current*s.span/total
}

type progressEmitter struct {
	ch    chan<- ProgressEvent
	scale progressScale
}

func newEmitter(ch chan<- ProgressEvent, scale progressScale) progressEmitter {
	return progressEmitter{ch: ch, scale: scale}
}

// emit blocks until the consumer takes ev or ctx is done.
func (e progressEmitter) emit(ctx context.Context, ev ProgressEvent) {
	if e.ch == nil {
		return
	}
	ev.Percent = e.scale.percent(ev.Current, ev.Total)
	if ev.Stage == StageCompleted {
		ev.Percent = e.scale.offset + e.scale.span
	}
	select {
	case e.ch <- ev:
	case <-ctx.Done():
	}
}

// pageFunc turns client page callbacks into fetching events.
func (e progressEmitter) pageFunc(ctx context.Context, resource string) providers.PageFunc {
	if e.ch == nil {
		return nil
	}
	return func(p providers.PageProgress) {
		e.emit(ctx, ProgressEvent{
			Resource: resource,
			Stage:    StageFetching,
			Current:  p.Fetched,
			Message:  p.Resource,
		})
	}
}
