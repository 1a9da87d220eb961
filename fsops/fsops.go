// Package fsops performs the builtin file operators directly on the local
// filesystem instead of emitting shell commands for them.
package fsops

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/readahead"
)

// ChunkSize is the read size used when comparing files.
const ChunkSize = 1 << 20

// Copy copies the regular file src to tgt, keeping its permission bits.
func Copy(src, tgt string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	ra := readahead.NewReader(in)
	defer ra.Close()

	return replace(tgt, info.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, ra)

		return err
	})
}

// WriteFile writes data to path with permission bits mode, creating parent
// directories as needed.
func WriteFile(path string, data []byte, mode os.FileMode) error {
	return replace(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)

		return err
	})
}

// replace writes a temporary file in the directory of path and renames it
// over path, so path is never observed partially written.
func replace(path string, mode os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}

	name := tmp.Name()
	committed := false

	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(name)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}

	if err := tmp.Chmod(mode); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(name, path); err != nil {
		return err
	}

	committed = true

	return nil
}

// CopyDir copies every entry of the directory src into tgt, creating tgt
// if needed. Subdirectories are copied recursively.
func CopyDir(src, tgt string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(tgt, 0o755); err != nil {
		return err
	}

	for _, e := range entries {
		from, to := filepath.Join(src, e.Name()), filepath.Join(tgt, e.Name())

		if e.IsDir() {
			err = CopyDir(from, to)
		} else {
			err = Copy(from, to)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// Link makes tgt a symbolic link to src, replacing any existing tgt.
func Link(src, tgt string) error {
	if err := os.Remove(tgt); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return os.Symlink(src, tgt)
}

// BitCmp reports whether src and tgt have identical contents. Files of
// different sizes are reported unequal without being read.
func BitCmp(src, tgt string) (bool, error) {
	a, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer a.Close()

	b, err := os.Open(tgt)
	if err != nil {
		return false, err
	}
	defer b.Close()

	ai, err := a.Stat()
	if err != nil {
		return false, err
	}

	bi, err := b.Stat()
	if err != nil {
		return false, err
	}

	if os.SameFile(ai, bi) {
		return true, nil
	}

	if ai.Size() != bi.Size() {
		return false, nil
	}

	ar, br := readahead.NewReader(a), readahead.NewReader(b)
	defer ar.Close()
	defer br.Close()

	abuf, bbuf := make([]byte, ChunkSize), make([]byte, ChunkSize)

	for {
		an, aerr := io.ReadFull(ar, abuf)
		bn, berr := io.ReadFull(br, bbuf)

		if !bytes.Equal(abuf[:an], bbuf[:bn]) {
			return false, nil
		}

		aend, bend := isEnd(aerr), isEnd(berr)

		switch {
		case aerr != nil && !aend:
			return false, aerr
		case berr != nil && !bend:
			return false, berr
		case aend || bend:
			return aend && bend, nil
		}
	}
}

func isEnd(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
