// /internal/library/watcher.go
package library

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const rescanDebounce = 500 * time.Millisecond

// Watch rescans the library whenever the sounds directory changes, until
// ctx is done. Bursts of events (a file copy, an unzip) collapse into one
// rescan. Call from main or app lifecycle; it blocks.
func (l *Library) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Println("[ERR] Failed to create sounds watcher:", err)
		return
	}
	defer watcher.Close()

	if err := l.watchTree(watcher); err != nil {
		log.Printf("[ERR] Failed to watch %s: %v", l.dir, err)
		return
	}

	var rescan <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				// fsnotify does not recurse; new category directories
				// have to join the watch set themselves.
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						log.Printf("[WARN] Failed to watch %s: %v", ev.Name, err)
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				rescan = time.After(rescanDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Println("[WARN] Sounds watcher error:", err)
		case <-rescan:
			rescan = nil
			if err := l.Scan(); err != nil {
				log.Println("[ERR] Rescan of sounds directory failed:", err)
			}
		}
	}
}

// watchTree adds the sounds directory and all its subdirectories to the
// watch set.
func (l *Library) watchTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
