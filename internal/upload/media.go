package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/moodlog/internal/constants"
)

// MediaStore is the app-private directory clips are moved into before upload,
// out of reach of temp-dir cleanup.
type MediaStore struct {
	dir string
	now func() time.Time
}

func NewMediaStore(dir string) *MediaStore {
	return &MediaStore{dir: dir, now: time.Now}
}

func (m *MediaStore) Dir() string {
	return m.dir
}

// Persist moves src into the store as vlog_<unix-ms>.mp4 and returns the new
// path. A clip already inside the store is returned unchanged.
func (m *MediaStore) Persist(src string) (string, error) {
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if abs, err := filepath.Abs(src); err == nil && filepath.Dir(abs) == filepath.Clean(m.dir) {
		return src, nil
	}

	dst := m.nextPath()
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	// Rename fails across filesystems.
	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to persist clip: %w", err)
	}
	_ = os.Remove(src)
	return dst, nil
}

// Remove deletes a clip, ignoring one that is already gone.
func (m *MediaStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *MediaStore) nextPath() string {
	ms := m.now().UnixMilli()
	for {
		p := filepath.Join(m.dir, fmt.Sprintf("%s%d%s", constants.MediaFilePrefix, ms, constants.MediaFileSuffix))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		ms++
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
