// Package fs stages generated project files on an in-memory filesystem so
// they can be inspected, zipped or copied to disk without touching the
// user's machine until they ask for it.
package fs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/slipwaylabs/slipway/project"
)

// FileSystem wraps the Afero Fs interface
type FileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem creates a new in-memory file system
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOsFileSystem creates a new OS-based file system
func NewOsFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewOsFs(),
	}
}

// Stage writes every file in the collection, creating parent directories as
// needed. Staging the same collection twice overwrites in place.
func (fs *FileSystem) Stage(files project.Collection) error {
	for _, f := range files {
		if err := fs.WriteFile(f.Path, f.Content); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile creates a new file with the given content or overwrites an
// existing file with the content
func (fs *FileSystem) WriteFile(path string, content string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	err := afero.WriteFile(fs.Fs, path, []byte(content), 0644)
	if err != nil {
		return fmt.Errorf("error writing file %s: %w", path, err)
	}
	return nil
}

// ReadFile returns the content of one staged file.
func (fs *FileSystem) ReadFile(path string) (string, error) {
	data, err := afero.ReadFile(fs.Fs, path)
	if err != nil {
		return "", fmt.Errorf("error reading file %s: %w", path, err)
	}
	return string(data), nil
}

// IsDir checks if a path is a directory
func (fs *FileSystem) IsDir(path string) bool {
	info, err := fs.Fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// WriteToZip writes the in-memory file system to a zip file
func (fs *FileSystem) WriteToZip(zipPath string) error {
	realFs := afero.NewOsFs()
	zipFile, err := realFs.Create(zipPath)
	if err != nil {
		return fmt.Errorf("error creating zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	fileCount := 0
	err = afero.Walk(fs.Fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}

		if info.IsDir() {
			_, err := zipWriter.Create(path + "/")
			if err != nil {
				return fmt.Errorf("error creating zip entry for directory %s: %w", path, err)
			}
			return nil
		}

		writer, err := zipWriter.Create(path)
		if err != nil {
			return fmt.Errorf("error creating zip entry for file %s: %w", path, err)
		}

		file, err := fs.Fs.Open(path)
		if err != nil {
			return fmt.Errorf("error opening file %s: %w", path, err)
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		if err != nil {
			return fmt.Errorf("error writing file %s to zip: %w", path, err)
		}

		fileCount++
		return nil
	})

	if err != nil {
		return fmt.Errorf("error walking file system: %w", err)
	}

	if fileCount == 0 {
		return fmt.Errorf("no files to zip")
	}

	err = zipWriter.Close()
	if err != nil {
		return fmt.Errorf("error closing zip writer: %w", err)
	}

	return nil
}

// CopyTo copies the staged tree into dstRoot on the OS filesystem.
func (fs *FileSystem) CopyTo(dstRoot string) error {
	dest := afero.NewOsFs()
	if err := dest.MkdirAll(dstRoot, 0755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dstRoot, err)
	}

	return afero.Walk(fs.Fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}

		target := filepath.Join(dstRoot, path)
		if info.IsDir() {
			return dest.MkdirAll(target, 0755)
		}

		data, err := afero.ReadFile(fs.Fs, path)
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", path, err)
		}
		if err := dest.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("error creating directory for %s: %w", target, err)
		}
		return afero.WriteFile(dest, target, data, 0644)
	})
}

// ListFiles lists all files in the filesystem and returns a map representing the directory structure
func (fs *FileSystem) ListFiles() (map[string]interface{}, error) {
	structure := make(map[string]interface{})

	err := afero.Walk(fs.Fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}

		parts := strings.Split(path, string(os.PathSeparator))
		current := structure
		for i, part := range parts {
			if i == len(parts)-1 {
				if info.IsDir() {
					current[part] = make(map[string]interface{})
				} else {
					current[part] = nil // Use nil to represent files
				}
			} else {
				if _, exists := current[part]; !exists {
					current[part] = make(map[string]interface{})
				}
				current = current[part].(map[string]interface{})
			}
		}
		return nil
	})

	return structure, err
}
