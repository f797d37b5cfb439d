package server

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
)

// Entry holds the per-file metadata handlers need, probed once at startup.
type Entry struct {
	Size        int64
	ModTime     time.Time
	ContentType string
	// Encoding is set for precompressed files (.gz/.br); ContentType then
	// describes the inner file.
	Encoding string
}

// Manifest is the read-only index of every served file, keyed by
// slash-separated path relative to the root. Built once before the listener
// opens and never mutated, so handlers read it without locking. It doubles
// as the traversal guard: only manifest paths are ever opened.
type Manifest struct {
	root    string
	entries map[string]Entry
}

var encodingsBySuffix = map[string]string{
	".gz": "gzip",
	".br": "br",
}

// BuildManifest walks root and records size, mod time, and content type for
// every regular file.
func BuildManifest(root string) (*Manifest, error) {
	m := &Manifest{root: root, entries: make(map[string]Entry)}

	// fastwalk runs the callback concurrently.
	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}

		entry := Entry{
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		entry.ContentType, entry.Encoding = classify(p)

		mu.Lock()
		m.entries[filepath.ToSlash(rel)] = entry
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", root, err)
	}
	if len(m.entries) == 0 {
		return nil, fmt.Errorf("nothing to serve under %s", root)
	}
	return m, nil
}

// Lookup returns the entry for a slash-separated relative path.
func (m *Manifest) Lookup(rel string) (Entry, bool) {
	entry, ok := m.entries[rel]
	return entry, ok
}

// Len returns the number of indexed files.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// classify determines the content type (and encoding for precompressed
// files). Extension mapping first; content sniffing only as fallback, since
// engine exports include extensionless pack files.
func classify(path string) (contentType, encoding string) {
	name := path
	if enc, ok := encodingsBySuffix[strings.ToLower(filepath.Ext(path))]; ok {
		encoding = enc
		name = strings.TrimSuffix(path, filepath.Ext(path))
	}

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct, encoding
	}
	if encoding == "" {
		if mt, err := mimetype.DetectFile(path); err == nil {
			return mt.String(), encoding
		}
	}
	return "application/octet-stream", encoding
}
