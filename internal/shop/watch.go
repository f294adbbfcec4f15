package shop

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/petasbytes/shop-agent/internal/logger"
)

const watchDebounce = 300 * time.Millisecond

// CatalogReloader receives a freshly parsed catalog.
type CatalogReloader interface {
	ReplaceCatalog(products []Product)
}

// WatchCatalog reloads the CSV at path into dst whenever it changes, until
// ctx is done. A file that fails to parse is logged and the previous catalog
// stays in place.
func WatchCatalog(ctx context.Context, path string, dst CatalogReloader) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch catalog: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch catalog: create watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch catalog: %q: %w", filepath.Dir(abs), err)
	}
	logger.InfoX("shop", "[CatalogWatcher] watching %s", abs)

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnX("shop", "[CatalogWatcher] %v", err)
		case <-timer.C:
			products, err := LoadCSVFile(abs)
			if err != nil {
				logger.WarnX("shop", "[CatalogWatcher] reload %s failed, keeping previous catalog: %v", abs, err)
				continue
			}
			dst.ReplaceCatalog(products)
			logger.InfoX("shop", "[CatalogWatcher] reloaded %d products", len(products))
		}
	}
}
