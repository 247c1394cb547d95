package fs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/slipwaylabs/slipway/project"
)

func TestNewMemoryFileSystem(t *testing.T) {
	fs := NewMemoryFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.MemMapFs{}, fs.Fs)
}

func TestNewOsFileSystem(t *testing.T) {
	fs := NewOsFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.OsFs{}, fs.Fs)
}

func TestWriteFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("test/file.txt", "Hello, World!")
	assert.NoError(t, err)

	content, err := afero.ReadFile(fs.Fs, "test/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(content))
}

func TestReadFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("src/App.jsx", "export default function App() {}")
	assert.NoError(t, err)

	content, err := fs.ReadFile("src/App.jsx")
	assert.NoError(t, err)
	assert.Equal(t, "export default function App() {}", content)

	_, err = fs.ReadFile("src/missing.jsx")
	assert.Error(t, err)
}

func TestStage(t *testing.T) {
	fs := NewMemoryFileSystem()
	files := project.Collection{
		{Path: "package.json", Content: `{"name": "demo-app"}`},
		{Path: "src/main.jsx", Content: "import App from './App';"},
		{Path: "src/components/Nav.jsx", Content: "export default function Nav() {}"},
	}

	err := fs.Stage(files)
	assert.NoError(t, err)

	for _, f := range files {
		content, err := afero.ReadFile(fs.Fs, f.Path)
		assert.NoError(t, err)
		assert.Equal(t, f.Content, string(content))
	}
	assert.True(t, fs.IsDir("src/components"))
}

func TestStageOverwrites(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.Stage(project.Collection{{Path: "index.html", Content: "old"}})
	assert.NoError(t, err)
	err = fs.Stage(project.Collection{{Path: "index.html", Content: "new"}})
	assert.NoError(t, err)

	content, err := fs.ReadFile("index.html")
	assert.NoError(t, err)
	assert.Equal(t, "new", content)
}

func TestIsDir(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.Fs.MkdirAll("test/dir", 0755)
	assert.NoError(t, err)

	isDir := fs.IsDir("test/dir")
	assert.True(t, isDir)

	isDir = fs.IsDir("test/nonexistent")
	assert.False(t, isDir)
}

func TestWriteToZip(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.Stage(project.Collection{
		{Path: "package.json", Content: `{"name": "demo-app"}`},
		{Path: "src/App.jsx", Content: "export default function App() {}"},
	})
	assert.NoError(t, err)

	zipPath := filepath.Join(t.TempDir(), "demo-app.zip")
	err = fs.WriteToZip(zipPath)
	assert.NoError(t, err)

	reader, err := zip.OpenReader(zipPath)
	assert.NoError(t, err)
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "package.json")
	assert.Contains(t, names, "src/App.jsx")
}

func TestWriteToZipEmpty(t *testing.T) {
	fs := NewMemoryFileSystem()
	zipPath := filepath.Join(t.TempDir(), "empty.zip")
	err := fs.WriteToZip(zipPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no files to zip")
}

func TestCopyTo(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.Stage(project.Collection{
		{Path: "index.html", Content: "<!doctype html>"},
		{Path: "src/index.css", Content: "@tailwind base;"},
	})
	assert.NoError(t, err)

	target := filepath.Join(t.TempDir(), "demo-app")
	err = fs.CopyTo(target)
	assert.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(target, "index.html"))
	assert.NoError(t, err)
	assert.Equal(t, "<!doctype html>", string(content))

	content, err = os.ReadFile(filepath.Join(target, "src", "index.css"))
	assert.NoError(t, err)
	assert.Equal(t, "@tailwind base;", string(content))
}

func TestListFiles(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("test/file.txt", "Hello, World!")
	assert.NoError(t, err)

	structure, err := fs.ListFiles()
	assert.NoError(t, err)
	assert.NotNil(t, structure)
	assert.Equal(t, map[string]interface{}{"test": map[string]interface{}{"file.txt": nil}}, structure)
}
