// Package assets indexes the image and sound libraries that scripts can
// reference in word overlays. Libraries are plain directories; the index is
// rebuilt on demand so files dropped in while the server runs are picked up.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	imageExtensions = map[string]bool{
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".gif":  true,
		".webp": true,
	}
	soundExtensions = map[string]bool{
		".mp3":  true,
		".wav":  true,
		".ogg":  true,
		".m4a":  true,
		".flac": true,
	}
)

// Library lists the asset files of one directory, filtered by extension.
type Library struct {
	dir        string
	extensions map[string]bool

	mu    sync.RWMutex
	files []string
}

// NewImageLibrary creates a library over dir accepting common image formats.
// The directory is created if it does not exist.
func NewImageLibrary(dir string) (*Library, error) {
	return newLibrary(dir, imageExtensions)
}

// NewSoundLibrary creates a library over dir accepting common audio formats.
// The directory is created if it does not exist.
func NewSoundLibrary(dir string) (*Library, error) {
	return newLibrary(dir, soundExtensions)
}

func newLibrary(dir string, extensions map[string]bool) (*Library, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("assets: create library dir: %w", err)
	}
	l := &Library{dir: dir, extensions: extensions}
	if err := l.Refresh(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the library directory.
func (l *Library) Dir() string {
	return l.dir
}

// Refresh rescans the directory.
func (l *Library) Refresh() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("assets: read library dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if l.extensions[ext] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	l.mu.Lock()
	l.files = files
	l.mu.Unlock()
	return nil
}

// List returns the indexed filenames in sorted order.
func (l *Library) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.files))
	copy(out, l.files)
	return out
}

// Resolve returns the absolute path of a named asset, or an error if the
// asset is not in the index. Names are restricted to the library directory.
func (l *Library) Resolve(name string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("assets: invalid asset name %q", name)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, f := range l.files {
		if f == name {
			return filepath.Join(l.dir, f), nil
		}
	}
	return "", fmt.Errorf("assets: %q not found in library", name)
}
