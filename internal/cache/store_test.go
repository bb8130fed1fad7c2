package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zerolog.Nop())
}

func TestResolvePath_Deterministic(t *testing.T) {
	s := NewStore("/cache", zerolog.Nop())

	a := s.ResolvePath("voice-1", "hello world", "pcm_22050", "wav")
	b := s.ResolvePath("voice-1", "hello world", "pcm_22050", "wav")
	if a != b {
		t.Errorf("Identical identity produced different paths: %s vs %s", a, b)
	}

	if !strings.HasPrefix(a, filepath.Join("/cache", "voice-1")) {
		t.Errorf("Expected path namespaced under voice id, got %s", a)
	}
	if !strings.HasSuffix(a, ".wav") {
		t.Errorf("Expected .wav extension, got %s", a)
	}
}

func TestResolvePath_DistinctIdentities(t *testing.T) {
	s := NewStore("/cache", zerolog.Nop())
	base := s.ResolvePath("voice-1", "hello", "pcm_22050", "wav")

	variants := []string{
		s.ResolvePath("voice-2", "hello", "pcm_22050", "wav"),
		s.ResolvePath("voice-1", "goodbye", "pcm_22050", "wav"),
		s.ResolvePath("voice-1", "hello", "mp3_44100_128", "wav"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("Variant %d collided with base path %s", i, base)
		}
	}
}

func TestResolvePath_NormalizesWhitespace(t *testing.T) {
	s := NewStore("/cache", zerolog.Nop())
	a := s.ResolvePath("v", "hello", "pcm_16000", "wav")
	b := s.ResolvePath("v", "  hello \n", "pcm_16000", "wav")
	if a != b {
		t.Error("Expected surrounding whitespace to be normalized away")
	}
}

func TestWrite_ThenExists(t *testing.T) {
	s := newTestStore(t)
	path := s.ResolvePath("v", "text", "pcm_16000", "wav")

	if s.Exists(path) {
		t.Fatal("Entry should not exist before write")
	}

	if err := s.Write(path, []byte("audio-bytes")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !s.Exists(path) {
		t.Error("Entry should exist after write")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("Unexpected content: %s", data)
	}
}

func TestWrite_FirstWriterWins(t *testing.T) {
	s := newTestStore(t)
	path := s.ResolvePath("v", "text", "pcm_16000", "wav")

	if err := s.Write(path, []byte("first")); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	// Identical length: treated as the same content, idempotent no-op.
	if err := s.Write(path, []byte("xxxxx")); err != nil {
		t.Fatalf("Second write should be a no-op, got: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "first" {
		t.Errorf("Expected first writer's content to survive, got %s", data)
	}
}

func TestWrite_ConcurrentIdenticalWrites(t *testing.T) {
	s := newTestStore(t)
	path := s.ResolvePath("v", "same text", "pcm_16000", "wav")
	payload := []byte("identical-payload")

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Write(path, payload)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Writer %d failed: %v", i, err)
		}
	}

	if !s.Exists(path) {
		t.Fatal("Entry missing after concurrent writes")
	}

	// No temp files may be left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		for _, e := range entries {
			t.Logf("leftover: %s", e.Name())
		}
		t.Errorf("Expected exactly one file, found %d", len(entries))
	}
}

func TestWrite_ConflictingContent(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Root(), "v", "entry.wav")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	// Simulate losing the race against a writer that produced a different
	// payload: the file appears between the exists-check and the link, so we
	// drive the commit step directly against a pre-existing conflicting file.
	if err := s.Write(path, []byte("short")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	err := s.commit(path, []byte("a much longer conflicting payload"))
	if !errors.Is(err, ErrWriteConflict) {
		t.Errorf("Expected ErrWriteConflict, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "short" {
		t.Errorf("Existing entry must stay authoritative, got %s", data)
	}
}
