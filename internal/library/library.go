// /internal/library/library.go
package library

import (
	"io/fs"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"soundboard/internal/player"
)

// CountSource supplies play counts for ranking. Implemented by the storage
// layer.
type CountSource interface {
	PlayCounts() (map[string]int, error)
}

// Library is the on-disk sound collection. Clip ids are derived from file
// stems, categories from the parent directory name. The scan result lives
// in memory; Scan rebuilds it and the watcher re-triggers it on filesystem
// changes.
type Library struct {
	mu     sync.RWMutex
	dir    string
	clips  map[string]player.Clip // key = lowercased clip id
	counts CountSource
}

func New(dir string, counts CountSource) *Library {
	return &Library{
		dir:    dir,
		clips:  make(map[string]player.Clip),
		counts: counts,
	}
}

// Dir returns the sounds directory the library scans.
func (l *Library) Dir() string {
	return l.dir
}

// Scan walks the sounds directory and rebuilds the clip index. The
// directory is created when missing so a fresh install starts clean. A
// later file with the same id replaces an earlier one.
func (l *Library) Scan() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}

	clips := make(map[string]player.Clip)
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if id == "" {
			return nil
		}
		category := filepath.Base(filepath.Dir(path))
		if category == filepath.Base(l.dir) {
			category = ""
		}
		clips[strings.ToLower(id)] = player.Clip{
			ID:       id,
			Path:     path,
			Category: category,
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.clips = clips
	l.mu.Unlock()

	log.Printf("[Library] Loaded %d sound(s) from %s", len(clips), l.dir)
	return nil
}

// ClipByID resolves a clip by its case-insensitive id.
func (l *Library) ClipByID(id string) (player.Clip, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	clip, ok := l.clips[strings.ToLower(id)]
	if !ok {
		return player.Clip{}, player.ErrSourceNotFound
	}
	return clip, nil
}

// RandomClip picks any clip uniformly at random.
func (l *Library) RandomClip() (player.Clip, error) {
	all := l.Clips()
	if len(all) == 0 {
		return player.Clip{}, player.ErrNoSounds
	}
	return all[rand.Intn(len(all))], nil
}

// RankedClips returns up to n clips ordered by play count, most played
// first for RankTop and least played first for RankBottom. Clips without
// recorded plays count as zero. Ties break on clip id so the ordering is
// stable.
func (l *Library) RankedClips(direction player.RankDirection, n int) ([]player.Clip, error) {
	counts, err := l.counts.PlayCounts()
	if err != nil {
		return nil, err
	}

	all := l.Clips()
	sort.SliceStable(all, func(i, j int) bool {
		ci := counts[all[i].ID]
		cj := counts[all[j].ID]
		if ci != cj {
			if direction == player.RankBottom {
				return ci < cj
			}
			return ci > cj
		}
		return strings.ToLower(all[i].ID) < strings.ToLower(all[j].ID)
	})

	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Clips returns all clips sorted case-insensitively by id.
func (l *Library) Clips() []player.Clip {
	l.mu.RLock()
	out := make([]player.Clip, 0, len(l.clips))
	for _, c := range l.clips {
		out = append(out, c)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].ID) < strings.ToLower(out[j].ID)
	})
	return out
}

// Categories returns the distinct clip categories, sorted.
func (l *Library) Categories() []string {
	seen := map[string]struct{}{}
	for _, c := range l.Clips() {
		if c.Category == "" {
			continue
		}
		seen[c.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
