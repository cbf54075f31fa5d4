// Package storage persists named logical documents to a single data
// directory.
//
// Each document is encoded as compact JSON and lives in exactly one of two
// on-disk representations: a plain file, or a gzip file once the encoded size
// crosses the compression threshold. Critical documents get a backup copy
// before every overwrite and are restored from it when the written document
// fails read-back verification.
package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"treasury/internal/log"
)

const (
	plainExt  = ".json"
	gzipExt   = ".json.gz"
	backupExt = ".bak"

	// DefaultCompressThreshold is the encoded size above which a document is
	// stored gzipped.
	DefaultCompressThreshold = 3 * 1024

	// DefaultOptimizeThreshold is the plain-file size above which startup
	// optimization rewrites a critical document through the gzip path.
	DefaultOptimizeThreshold = 10 * 1024
)

// ErrVerification is returned when a written document reads back empty even
// though the input was not. The previous on-disk state has been restored from
// backup when one was made.
var ErrVerification = errors.New("document verification failed")

type Store struct {
	dir               string
	compressThreshold int
	optimizeThreshold int64
	critical          map[string]bool
}

// New opens a store over dir, creating it if needed. Documents named in
// critical are backed up before every overwrite. Non-positive thresholds fall
// back to the defaults.
func New(dir string, compressThreshold int, optimizeThreshold int64, critical ...string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	if optimizeThreshold <= 0 {
		optimizeThreshold = DefaultOptimizeThreshold
	}

	s := &Store{
		dir:               dir,
		compressThreshold: compressThreshold,
		optimizeThreshold: optimizeThreshold,
		critical:          make(map[string]bool, len(critical)),
	}
	for _, name := range critical {
		s.critical[name] = true
	}
	return s, nil
}

func (s *Store) plainPath(name string) string {
	return filepath.Join(s.dir, name+plainExt)
}

func (s *Store) gzipPath(name string) string {
	return filepath.Join(s.dir, name+gzipExt)
}

// Save encodes doc and replaces the on-disk document named name. Exactly one
// representation exists afterwards; on verification failure the previous state
// is restored for critical documents and the error is returned.
func (s *Store) Save(name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.write(name, data, len(data) > s.compressThreshold)
}

func (s *Store) write(name string, data []byte, compressed bool) error {
	if s.critical[name] {
		if err := s.backup(name); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
	}

	target, other := s.plainPath(name), s.gzipPath(name)
	payload := data
	if compressed {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress %s: %w", name, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress %s: %w", name, err)
		}
		payload = buf.Bytes()
		target, other = s.gzipPath(name), s.plainPath(name)
	}

	if err := writeFileAtomic(target, payload); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Remove(other); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale representation of %s: %w", name, err)
	}

	if err := s.verify(name, data); err != nil {
		s.restoreBackup(name)
		return err
	}

	slog.Debug("Document saved",
		log.FieldDocument, name,
		"bytes", len(data),
		"compressed", compressed)
	return nil
}

// verify re-reads the just-written document. A nonempty input that reads back
// empty (or not at all) means the write cannot be trusted.
func (s *Store) verify(name string, input []byte) error {
	if !nonEmptyJSON(input) {
		return nil
	}
	written, found, err := s.read(name)
	if err != nil {
		return fmt.Errorf("%w: re-read %s: %w", ErrVerification, name, err)
	}
	if !found || !nonEmptyJSON(written) {
		return fmt.Errorf("%w: document %s read back empty", ErrVerification, name)
	}
	return nil
}

// Load decodes the document named name into out. It returns false when no
// representation exists, leaving out untouched so the caller's default
// applies.
func (s *Store) Load(name string, out any) (bool, error) {
	data, found, err := s.read(name)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// read returns the raw JSON of a document, preferring the gzip representation.
func (s *Store) read(name string) ([]byte, bool, error) {
	if data, err := readGzip(s.gzipPath(name)); err == nil {
		return data, true, nil
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}

	data, err := os.ReadFile(s.plainPath(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

// backup copies whichever representation currently exists to its backup path
// and clears the other representation's backup. A document that flipped
// representations would otherwise leave both backups on disk, and a later
// restore could resurrect a version older than the one being replaced.
func (s *Store) backup(name string) error {
	plain, gz := s.plainPath(name), s.gzipPath(name)
	for _, paths := range [][2]string{{plain, gz}, {gz, plain}} {
		live, stale := paths[0], paths[1]
		switch err := copyFile(live, live+backupExt); {
		case err == nil:
			if err := os.Remove(stale + backupExt); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		case !os.IsNotExist(err):
			return err
		}
	}
	return nil // nothing on disk yet
}

// restoreBackup puts the backed-up representation back in place and drops the
// representation the failed save produced.
func (s *Store) restoreBackup(name string) {
	restored := false
	if err := copyFile(s.plainPath(name)+backupExt, s.plainPath(name)); err == nil {
		os.Remove(s.gzipPath(name))
		restored = true
	} else if err := copyFile(s.gzipPath(name)+backupExt, s.gzipPath(name)); err == nil {
		os.Remove(s.plainPath(name))
		restored = true
	}
	if restored {
		slog.Warn("Restored document from backup", log.FieldDocument, name)
	}
}

// OptimizeStartup rewrites oversized critical documents through the gzip
// path. It is advisory: problems are logged and never returned, so startup is
// never blocked.
func (s *Store) OptimizeStartup() {
	for name := range s.critical {
		fi, err := os.Stat(s.plainPath(name))
		if err != nil || fi.Size() <= s.optimizeThreshold {
			continue
		}
		if _, err := os.Stat(s.gzipPath(name)); err == nil {
			continue
		}

		data, _, err := s.read(name)
		if err != nil {
			slog.Warn("Startup optimization skipped", log.FieldDocument, name, log.FieldError, err)
			continue
		}
		if err := s.write(name, data, true); err != nil {
			slog.Warn("Startup optimization failed", log.FieldDocument, name, log.FieldError, err)
			continue
		}
		slog.Info("Compressed oversized document",
			log.FieldDocument, name,
			"bytes", fi.Size())
	}
}

func readGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// nonEmptyJSON reports whether data encodes a document with content: a
// non-empty object or array, or any scalar other than null.
func nonEmptyJSON(data []byte) bool {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
