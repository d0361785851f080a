package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/voxmimic/pkg/audio"
)

// ErrAudioNotFound is returned by ReadAudio when a voice has no reference
// recording on disk.
var ErrAudioNotFound = errors.New("reference audio not found")

const (
	documentName = "registry.json"
	voicesDir    = "voices"
	audioName    = "reference.wav"
)

// Store reads and writes the registry document and the per-voice reference
// recordings under a single data directory. Every mutation of the document
// goes through [Store.Mutate], a whole-document read-modify-write held under
// the store lock.
type Store struct {
	mu      sync.Mutex
	dataDir string
}

// NewStore returns a Store rooted at dataDir. The directory is created on
// first write, not here.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// DocumentPath returns the location of the registry document.
func (s *Store) DocumentPath() string {
	return filepath.Join(s.dataDir, documentName)
}

// Load reads the full registry document. A missing, unreadable or unparsable
// document degrades to an empty one; the condition is logged, never returned.
func (s *Store) Load() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() Document {
	path := s.DocumentPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("registry: cannot read document, starting empty", "path", path, "err", err)
		}
		return Document{}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("registry: document is corrupt, starting empty", "path", path, "err", err)
		return Document{}
	}
	return doc
}

// Save writes the full document, replacing the previous one. The document is
// written to a temporary file in the same directory and renamed into place so
// an interrupted save never leaves a truncated document behind.
func (s *Store) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

func (s *Store) save(doc Document) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("registry: create data dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal document: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, documentName+".tmp-*")
	if err != nil {
		return fmt.Errorf("registry: create temp document: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("registry: write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("registry: close temp document: %w", err)
	}
	if err := os.Rename(tmpPath, s.DocumentPath()); err != nil {
		return fmt.Errorf("registry: replace document: %w", err)
	}
	return nil
}

// Mutate loads the current document, applies fn and persists the result, all
// under the store lock. If fn returns an error nothing is saved.
func (s *Store) Mutate(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if err := fn(&doc); err != nil {
		return err
	}
	return s.save(doc)
}

// AudioPath returns where the reference recording for a voice lives.
// Existence is not implied.
func (s *Store) AudioPath(id string) string {
	return filepath.Join(s.dataDir, voicesDir, id, audioName)
}

// WriteAudio stores a reference recording for the voice, creating its
// directory as needed. The clip is encoded at its captured rate; no
// resampling happens at storage time.
func (s *Store) WriteAudio(id string, c audio.Clip) error {
	path := s.AudioPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("registry: create voice dir: %w", err)
	}
	if err := os.WriteFile(path, audio.EncodeWAV(c), 0o644); err != nil {
		return fmt.Errorf("registry: write audio: %w", err)
	}
	return nil
}

// ReadAudio loads the reference recording for the voice. Returns
// [ErrAudioNotFound] when the file does not exist.
func (s *Store) ReadAudio(id string) (audio.Clip, error) {
	data, err := os.ReadFile(s.AudioPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return audio.Clip{}, fmt.Errorf("registry: voice %s: %w", id, ErrAudioNotFound)
		}
		return audio.Clip{}, fmt.Errorf("registry: read audio: %w", err)
	}

	c, err := audio.DecodeWAV(data)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("registry: voice %s: %w", id, err)
	}
	return c, nil
}

// DeleteAudioDir removes a voice's on-disk directory and everything in it.
// Removing an absent directory is not an error.
func (s *Store) DeleteAudioDir(id string) error {
	if err := os.RemoveAll(filepath.Join(s.dataDir, voicesDir, id)); err != nil {
		return fmt.Errorf("registry: delete voice dir: %w", err)
	}
	return nil
}
