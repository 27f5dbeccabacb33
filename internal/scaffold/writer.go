package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/unitframe/internal/project"
)

// writeProjectFile replaces path with data and leaves it with exactly perm.
// The content goes to a temporary file in the same directory first, so an
// interrupted scaffold never leaves a half-written project behind and an
// existing file picks up the new mode.
func writeProjectFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

// projectMode is the mode of a scaffolded file. Scripts are run directly in
// watch mode; C++ sources are compiled instead.
func projectMode(lang project.Language) os.FileMode {
	if lang == project.LanguageCpp {
		return 0o644
	}

	return 0o755
}
