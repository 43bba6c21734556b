package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem_AddAndRead(t *testing.T) {
	m := NewMemoryFileSystem()
	m.AddFile("scenes/a/a.house", []byte("ASCII 1.1\n"))

	data, err := m.ReadFile("scenes/a/./a.house")
	require.NoError(t, err)
	assert.Equal(t, "ASCII 1.1\n", string(data))

	// Mutating the returned slice must not leak into the store.
	data[0] = 'x'
	again, _ := m.ReadFile("scenes/a/a.house")
	assert.Equal(t, byte('A'), again[0])
}

func TestMemoryFileSystem_Open(t *testing.T) {
	m := NewMemoryFileSystem()
	m.AddFile("mesh.ply", []byte("ply\n"))

	f, err := m.Open("mesh.ply")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ply\n", string(data))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "mesh.ply", info.Name())
	assert.Equal(t, int64(4), info.Size())

	_, err = m.Open("missing.ply")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	m := NewMemoryFileSystem()
	w, err := m.Create("out/a.ply")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)

	data, _ := m.ReadFile("out/a.ply")
	assert.Empty(t, data)

	require.NoError(t, w.Close())
	data, err = m.ReadFile("out/a.ply")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMemoryFileSystem_RenameRemove(t *testing.T) {
	m := NewMemoryFileSystem()
	m.AddFile("a.tmp", []byte("x"))

	require.NoError(t, m.Rename("a.tmp", "a"))
	assert.False(t, m.Exists("a.tmp"))
	assert.True(t, m.Exists("a"))

	assert.Error(t, m.Rename("a.tmp", "b"))
	require.NoError(t, m.Remove("a"))
	assert.Error(t, m.Remove("a"))
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("a/b/c", 0755))
	assert.True(t, m.Exists("a"))
	assert.True(t, m.Exists("a/b"))
	assert.True(t, m.Exists("a/b/c"))
	assert.False(t, m.Exists("b"))
}

func TestWriteAtomic_Success(t *testing.T) {
	m := NewMemoryFileSystem()
	err := WriteAtomic(m, "out/scene.ply", func(w io.Writer) error {
		_, err := w.Write([]byte("payload"))
		return err
	})
	require.NoError(t, err)

	data, err := m.ReadFile("out/scene.ply")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.False(t, m.Exists("out/scene.ply.tmp"))
	assert.True(t, m.Exists("out"))
}

func TestWriteAtomic_FailureLeavesTargetUntouched(t *testing.T) {
	m := NewMemoryFileSystem()
	m.AddFile("out/scene.ply", []byte("previous"))

	boom := errors.New("boom")
	err := WriteAtomic(m, "out/scene.ply", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	data, _ := m.ReadFile("out/scene.ply")
	assert.Equal(t, "previous", string(data))
	assert.False(t, m.Exists("out/scene.ply.tmp"))
}

func TestOSFileSystem_WriteAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "scene.pcd")

	var osfs OSFileSystem
	require.NoError(t, WriteAtomic(osfs, target, func(w io.Writer) error {
		_, err := io.WriteString(w, "VERSION .7\n")
		return err
	}))

	assert.True(t, osfs.Exists(target))
	assert.False(t, osfs.Exists(target+".tmp"))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "VERSION .7\n", string(data))
}

func TestMemoryFileSystem_Files(t *testing.T) {
	m := NewMemoryFileSystem()
	m.AddFile("out/a", nil)
	m.AddFile("out/b", nil)
	m.AddFile("in/c", nil)
	assert.ElementsMatch(t, []string{"out/a", "out/b"}, m.Files("out/"))
}
