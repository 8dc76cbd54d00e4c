package storage

import (
	"context"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/log"
)

const archiveQueueDepth = 32

// Archiver copies newly available media to a Provider in the background.
type Archiver struct {
	provider Provider
	prefix   string
	queue    chan core.Event
	log      log.Logger
}

var _ core.Notifier = (*Archiver)(nil)

func NewArchiver(provider Provider, prefix string) *Archiver {
	return &Archiver{
		provider: provider,
		prefix:   strings.Trim(prefix, "/"),
		queue:    make(chan core.Event, archiveQueueDepth),
		log:      log.WithName("archiver"),
	}
}

// Notify queues media.available events. Everything else is ignored.
func (a *Archiver) Notify(_ context.Context, ev core.Event) {
	if ev.Type != core.EventMediaAvailable {
		return
	}
	select {
	case a.queue <- ev:
	default:
		a.log.Warn("Archive queue full, skipping media", "files", ev.Files)
	}
}

// Key returns the object key for a media path such as /DCIM/100RICOH/R0010001.JPG.
func (a *Archiver) Key(file string) string {
	return path.Join(a.prefix, strings.TrimPrefix(filepath.ToSlash(file), "/"))
}

// Start archives queued media until ctx is done.
func (a *Archiver) Start(ctx context.Context) error {
	if err := a.provider.CheckBucket(ctx); err != nil {
		a.log.Error(err, "Bucket check failed, uploads may fail")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-a.queue:
			a.archive(ctx, ev)
		}
	}
}

func (a *Archiver) archive(ctx context.Context, ev core.Event) {
	for i, file := range ev.Files {
		if i >= len(ev.Sources) {
			a.log.Warn("No local source for media", "file", file)
			continue
		}
		src := ev.Sources[i]
		key := a.Key(file)
		if err := a.provider.Put(ctx, key, src, mime.TypeByExtension(strings.ToLower(filepath.Ext(src)))); err != nil {
			a.log.Error(err, "Failed to archive media", "file", file, "command", ev.CommandID)
			continue
		}
		a.log.Info("Media archived", "key", key)
	}
}
