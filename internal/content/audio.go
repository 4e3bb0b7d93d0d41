package content

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"learnsphere/internal/core"

	"github.com/google/uuid"
)

const maxNameAttempts = 3

// AudioStore owns the directory holding generated audio artifacts.
type AudioStore struct {
	dir string
	now func() time.Time
}

// NewAudioStore returns a store rooted at dir.
func NewAudioStore(dir string) *AudioStore {
	if dir == "" {
		dir = core.DefaultAudioDir
	}
	return &AudioStore{dir: dir, now: time.Now}
}

// Dir returns the artifact directory.
func (s *AudioStore) Dir() string {
	return s.dir
}

// NewFilename returns explanation_<id>_<timestamp>.mp3 with a random 8-char id.
func (s *AudioStore) NewFilename() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:core.AudioFileIDLength]
	return core.AudioFilePrefix + id + "_" + s.now().Format(core.TimeFormatFileName) + core.AudioFileExtension
}

// Create opens a new, uniquely named artifact for writing. The file is
// created exclusively so concurrent writers never share a name.
func (s *AudioStore) Create() (*os.File, string, error) {
	if err := os.MkdirAll(s.dir, core.DirPermission); err != nil {
		return nil, "", fmt.Errorf("create audio dir: %w", err)
	}

	var lastErr error
	for range maxNameAttempts {
		name := s.NewFilename()
		//nolint:gosec // G304: name is generated, not user input
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, core.FilePermissionReadWrite)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create audio file: %w", err)
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("create audio file: %w", lastErr)
}

// Remove deletes an artifact, ignoring missing files.
func (s *AudioStore) Remove(name string) {
	if !SafeFilename(name) {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, name))
}

// Resolve returns the on-disk path of an existing artifact. It returns
// ErrInvalidFilename before touching the filesystem when name is unsafe.
func (s *AudioStore) Resolve(name string) (string, error) {
	if !SafeFilename(name) {
		return "", ErrInvalidFilename
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", os.ErrNotExist
	}
	return path, nil
}

// SafeFilename reports whether name is a plain file name that cannot leave
// the artifact directory.
func SafeFilename(name string) bool {
	if name == "" || name == "." {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return !filepath.IsAbs(name)
}

// writeAudio streams synthesized audio into a new artifact and verifies it is non-empty.
func writeAudio(s *AudioStore, synth func(w io.Writer) error) (string, int64, error) {
	f, name, err := s.Create()
	if err != nil {
		return "", 0, err
	}

	if err := synth(f); err != nil {
		_ = f.Close()
		s.Remove(name)
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		s.Remove(name)
		return "", 0, fmt.Errorf("close audio file: %w", err)
	}

	info, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil || info.Size() == 0 {
		s.Remove(name)
		return "", 0, errors.New("audio file creation failed")
	}
	return name, info.Size(), nil
}
