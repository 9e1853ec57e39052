package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"tabula/internal/domain"
	"tabula/internal/tabular"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher ingests files that appear in a directory as datasets owned by a
// fixed user. Events for the same file are debounced so a file is ingested
// once its writer has gone quiet.
type Watcher struct {
	svc      *IngestionService
	dir      string
	owner    string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a Watcher for dir.
func NewWatcher(svc *IngestionService, dir, owner string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		svc:      svc,
		dir:      dir,
		owner:    owner,
		debounce: defaultDebounce,
		logger:   logger.With("component", "watcher", "dir", dir),
	}
}

// SetDebounce overrides the quiet period before a file is ingested.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run watches the directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close() //nolint:errcheck

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %q: %w", w.dir, err)
	}
	w.logger.Info("watching for uploads")

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !watchable(event.Name) {
				continue
			}
			name := event.Name
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})
		case name := <-ready:
			delete(timers, name)
			if _, err := w.IngestFile(ctx, name); err != nil {
				w.logger.Error("watched file not ingested", "file", name, "error", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// IngestFile ingests the file at path on behalf of the watch owner.
func (w *Watcher) IngestFile(ctx context.Context, path string) (*domain.Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the watched directory
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	base := filepath.Base(path)
	ctx = domain.WithPrincipal(ctx, domain.ContextPrincipal{UserID: w.owner})
	return w.svc.Upload(ctx, domain.UploadRequest{
		Name:     strings.TrimSuffix(base, filepath.Ext(base)),
		Filename: base,
		Source:   domain.SourceWatch,
	}, f)
}

// watchable skips hidden and temporary files and unsupported extensions.
func watchable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	_, _, err := tabular.Detect(base)
	return err == nil
}
