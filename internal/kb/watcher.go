package kb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/samjmc/dashchat/internal/core/ports/driving"
	"github.com/samjmc/dashchat/internal/core/services"
	"github.com/samjmc/dashchat/internal/logger"
)

// watchedExtensions are the file types the watcher ingests.
var watchedExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Watcher monitors a directory for knowledge-base files and ingests new or
// modified ones. Rapid saves are coalesced through a debounce window so an
// editor writing a file in several syscalls triggers a single rescan.
type Watcher struct {
	mu       sync.Mutex
	dir      string
	docs     driving.DocumentService
	watcher  *fsnotify.Watcher
	notifier *services.ChangeNotifier
	seen     map[string]time.Time
	stop     chan struct{}
	done     chan struct{}
	running  bool
}

// NewWatcher creates a watcher over dir. The directory is created when
// missing so operators can drop files in before the first scan.
func NewWatcher(dir string, docs driving.DocumentService, debounce time.Duration) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		docs:    docs,
		watcher: fsw,
		seen:    make(map[string]time.Time),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	w.notifier = services.NewChangeNotifier(debounce, func() {
		w.Rescan(context.Background())
	})
	return w, nil
}

// Start scans the directory once, then begins watching it. Non-blocking;
// call Close to stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	logger.Info("Watching knowledge base directory: %s", w.dir)

	w.Rescan(ctx)

	go w.run(ctx)
	return nil
}

// run is the watcher event loop.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Knowledge base watcher: %v", err)
		}
	}
}

// handleEvent filters filesystem events down to ingestable file changes and
// arms the debounce.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	logger.Debug("Knowledge base change: %s (%s)", event.Name, event.Op)
	w.notifier.Notify()
}

// Rescan walks the directory and ingests files that are new or modified
// since the last scan. Unreadable files are logged and skipped.
func (w *Watcher) Rescan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Error("Knowledge base scan failed: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !watchedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		path := filepath.Join(w.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		w.mu.Lock()
		last, ok := w.seen[path]
		w.mu.Unlock()
		if ok && !info.ModTime().After(last) {
			continue
		}

		if err := w.ingest(ctx, path); err != nil {
			logger.Warn("Failed to ingest %s: %v", path, err)
			continue
		}

		w.mu.Lock()
		w.seen[path] = info.ModTime()
		w.mu.Unlock()
	}
}

// ingest reads one file into the document store. The title is the file name
// without its extension.
func (w *Watcher) ingest(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))

	_, err = w.docs.Add(ctx, title, string(content), map[string]any{
		"source": "watched",
		"file":   name,
	})
	if err != nil {
		return err
	}

	logger.Info("Ingested knowledge base file: %s", name)
	return nil
}

// Close stops watching and releases the filesystem watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	<-w.done

	w.notifier.Close()
	return w.watcher.Close()
}
