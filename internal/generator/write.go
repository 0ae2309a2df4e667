package generator

import (
	"fmt"
	"os"
	"path/filepath"
)

type file struct {
	path string
	data []byte
}

// writeFiles stages every file as a temp file in dir and renames them into
// place only once all of them are on disk. If any rename fails, files
// already renamed are restored and none of the targets change.
func writeFiles(dir string, files []file) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	temps := make([]string, 0, len(files))
	defer func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}()

	for _, f := range files {
		tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tmp-*")
		if err != nil {
			return fmt.Errorf("failed to create temp file for %s: %w", f.path, err)
		}
		temps = append(temps, tmp.Name())

		if _, err := tmp.Write(f.data); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to sync %s: %w", f.path, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", f.path, err)
		}
		if err := os.Chmod(tmp.Name(), 0644); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", f.path, err)
		}
	}

	// Existing targets are moved aside first so a failed rename can put
	// every file back the way it was.
	type placed struct{ path, backup string }
	var done []placed
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if done[i].backup != "" {
				os.Rename(done[i].backup, done[i].path)
			} else {
				os.Remove(done[i].path)
			}
		}
	}

	for i, f := range files {
		backup, err := moveAside(f.path)
		if err != nil {
			rollback()
			return err
		}
		if err := os.Rename(temps[i], f.path); err != nil {
			if backup != "" {
				os.Rename(backup, f.path)
			}
			rollback()
			return fmt.Errorf("failed to move %s into place: %w", f.path, err)
		}
		done = append(done, placed{path: f.path, backup: backup})
	}

	for _, p := range done {
		if p.backup != "" {
			os.Remove(p.backup)
		}
	}
	return nil
}

// moveAside renames an existing regular file at path to a backup name in
// the same directory and returns that name. It returns "" when there is
// nothing to back up.
func moveAside(path string) (string, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil
	}

	bak, err := os.CreateTemp(filepath.Dir(path), ".bak-*")
	if err != nil {
		return "", fmt.Errorf("failed to create backup for %s: %w", path, err)
	}
	bak.Close()
	if err := os.Rename(path, bak.Name()); err != nil {
		os.Remove(bak.Name())
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return bak.Name(), nil
}
