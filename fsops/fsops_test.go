package fsops

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o640))
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.dat")
	tgt := filepath.Join(dir, "out", "copy.dat")

	write(t, src, []byte("namelist contents\n"))
	require.NoError(t, Copy(src, tgt))

	got, err := os.ReadFile(tgt)
	require.NoError(t, err)
	assert.Equal(t, "namelist contents\n", string(got))

	info, err := os.Stat(tgt)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(tgt))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs", "JRT_T")

	require.NoError(t, WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, WriteFile(path, []byte("#!/usr/bin/env bash\n"), 0o755))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/usr/bin/env bash\n", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	tgt := filepath.Join(dir, "out.dat")

	require.Error(t, Copy(filepath.Join(dir, "absent"), tgt))
	assert.NoFileExists(t, tgt)
}

func TestCopyDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	write(t, filepath.Join(src, "a.txt"), []byte("a"))
	write(t, filepath.Join(src, "sub", "b.txt"), []byte("b"))

	tgt := filepath.Join(dir, "tgt")
	require.NoError(t, CopyDir(src, tgt))

	for name, want := range map[string]string{"a.txt": "a", "sub/b.txt": "b"} {
		got, err := os.ReadFile(filepath.Join(tgt, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(got), name)
	}
}

func TestLink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "fix.nc")
	tgt := filepath.Join(dir, "link.nc")

	write(t, src, []byte("x"))
	write(t, tgt, []byte("stale"))

	require.NoError(t, Link(src, tgt))

	dest, err := os.Readlink(tgt)
	require.NoError(t, err)
	assert.Equal(t, src, dest)
}

func TestBitCmp(t *testing.T) {
	dir := t.TempDir()

	big := bytes.Repeat([]byte{0x5a}, ChunkSize+17)
	bigDiff := bytes.Clone(big)
	bigDiff[ChunkSize+3] = 0
	bigFirst := bytes.Clone(big)
	bigFirst[0] = 0
	bigLast := bytes.Clone(big)
	bigLast[len(bigLast)-1] = 0

	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{name: "empty", a: nil, b: nil, want: true},
		{name: "equal", a: []byte("abc"), b: []byte("abc"), want: true},
		{name: "differ", a: []byte("abc"), b: []byte("abd"), want: false},
		{name: "size", a: []byte("abc"), b: []byte("abcd"), want: false},
		{name: "multi-chunk equal", a: big, b: bytes.Clone(big), want: true},
		{name: "multi-chunk differ", a: big, b: bigDiff, want: false},
		{name: "first byte", a: big, b: bigFirst, want: false},
		{name: "last byte", a: big, b: bigLast, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := filepath.Join(dir, tt.name+".a")
			b := filepath.Join(dir, tt.name+".b")

			write(t, a, tt.a)
			write(t, b, tt.b)

			got, err := BitCmp(a, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBitCmpSameFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f")
	write(t, src, []byte("data"))

	link := filepath.Join(dir, "l")
	require.NoError(t, os.Symlink(src, link))

	same, err := BitCmp(src, link)
	require.NoError(t, err)
	assert.True(t, same)
}

func TestBitCmpMissing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f")
	write(t, src, []byte("data"))

	_, err := BitCmp(src, filepath.Join(dir, "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
