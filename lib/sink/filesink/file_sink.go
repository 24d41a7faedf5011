package filesink

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSink replaces the file at path with every frame it is given. Frames
// are written to a temporary file next to path and renamed into place, so
// readers never see a partial frame.
type FileSink struct {
	path string
}

func New(path string) *FileSink {
	return &FileSink{path: path}
}

func (f *FileSink) Location() string {
	return f.path
}

func (f *FileSink) Write(data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("could not write %s: %w", f.path, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("could not write %s: %w", f.path, err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("could not write %s: %w", f.path, err)
	}
	err = os.Chmod(tmp.Name(), 0o644)
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
