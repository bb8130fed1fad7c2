// Package cache provides deterministic on-disk addressing of generated audio
// by request identity. Presence of a file is the single source of truth for
// "already generated"; there is no separate index.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrWriteConflict indicates a concurrent writer produced a file with
// different content for the same identity. Identical concurrent writes are
// idempotent no-ops and do not raise it.
var ErrWriteConflict = errors.New("cache write conflict")

// Store addresses cached clips under a namespaced root directory.
type Store struct {
	root string
	log  zerolog.Logger
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first write, not here.
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		root: dir,
		log:  log.With().Str("component", "cache").Logger(),
	}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// ResolvePath maps a request identity (voice, normalized text, output format)
// to a file path. The mapping is a pure function of its inputs: identical
// identity always yields an identical path, across process runs. ext selects
// the container file extension ("mp3", "wav", "ogg").
func (s *Store) ResolvePath(voiceID, text, format, ext string) string {
	h := sha256.New()
	h.Write([]byte(voiceID))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(text)))
	h.Write([]byte{0})
	h.Write([]byte(format))
	key := hex.EncodeToString(h.Sum(nil))

	return filepath.Join(s.root, voiceID, key+"."+ext)
}

// Exists reports whether a cached file is present at path.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Write persists data at path with write-once semantics. The payload lands in
// a temporary file first and is linked into place, so a crash or cancellation
// mid-write never leaves a torn file at the final path.
//
// First-writer-wins: if another writer completed the same path first, the
// existing file is authoritative and this write becomes a no-op — unless its
// size differs from ours, which means two writers disagreed about the content
// of one identity and the caller gets ErrWriteConflict.
func (s *Store) Write(path string, data []byte) error {
	if s.Exists(path) {
		s.log.Debug().Str("path", path).Msg("cache entry present, skipping write")
		return nil
	}
	return s.commit(path, data)
}

// commit stages data in a temp file and links it into place at path.
func (s *Store) commit(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache temp file: %w", err)
	}

	// Link is atomic and fails if the destination appeared in the meantime,
	// which is exactly the race we need to detect.
	if err := os.Link(tmp, path); err != nil {
		_ = os.Remove(tmp)
		if !os.IsExist(err) {
			return fmt.Errorf("commit cache file: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr == nil && info.Size() != int64(len(data)) {
			return fmt.Errorf("%w: %s exists with %d bytes, attempted %d", ErrWriteConflict, path, info.Size(), len(data))
		}
		s.log.Debug().Str("path", path).Msg("lost cache write race, existing entry kept")
		return nil
	}

	if err := os.Remove(tmp); err != nil {
		s.log.Warn().Err(err).Str("path", tmp).Msg("failed to remove cache temp file")
	}

	s.log.Debug().Str("path", path).Int("bytes", len(data)).Msg("cache entry written")
	return nil
}
