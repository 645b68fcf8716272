package knowledge

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a corpus from a directory whenever its markdown files
// change. The whole directory is re-read on every relevant event; corpora
// are small and the reload is atomic through Corpus.Replace.
type Watcher struct {
	watcher *fsnotify.Watcher
	corpus  *Corpus
	dir     string
}

// NewWatcher creates a watcher that keeps corpus in sync with dir.
func NewWatcher(corpus *Corpus, dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{watcher: w, corpus: corpus, dir: dir}, nil
}

// Run processes file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Knowledge watcher error (dir: %s): %v", w.dir, err)
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) reload() {
	docs, err := LoadDirectory(w.dir)
	if err != nil {
		log.Printf("Knowledge reload failed (dir: %s): %v", w.dir, err)
		return
	}
	w.corpus.Replace(docs)
	log.Printf("Knowledge corpus reloaded (dir: %s, documents: %d)", w.dir, len(docs))
}
