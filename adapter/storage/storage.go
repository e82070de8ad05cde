// Package storage contains the default [domain.Storage] implementation.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dolmen-go/contextio"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// tempSuffix is appended to the datafile name to get the crash-safe copy.
const tempSuffix = "~"

var (
	osSpecificEnsureDir = func(o osOps, dir string, mode os.FileMode) error {
		return o.MkdirAll(dir, mode)
	}
	osSpecificSync = func(f *os.File, _ bool) error {
		return f.Sync()
	}
)

// Storage implements [domain.Storage] on the local file system.
type Storage struct {
	ops       osOps
	newWriter func(ctx context.Context, w io.Writer) io.Writer
}

// NewStorage returns a new implementation of [domain.Storage].
func NewStorage() domain.Storage {
	return &Storage{ops: &osImpl{}, newWriter: contextio.NewWriter}
}

func ioErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errs.ErrIO, err)
}

// AppendFile implements [domain.Storage]. A failed write is truncated away,
// so either all of data or none of it stays in the file.
func (s *Storage) AppendFile(ctx context.Context, filename string, mode os.FileMode, data []byte) (n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := s.ops.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, mode)
	if err != nil {
		return 0, ioErr(err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = ioErr(closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return 0, ioErr(err)
	}
	size := info.Size()

	n, err = s.newWriter(ctx, f).Write(data)
	if err == nil {
		return n, nil
	}
	if ctx.Err() == nil {
		err = ioErr(err)
	}
	if truncErr := f.Truncate(size); truncErr != nil {
		return n, errors.Join(err, ioErr(truncErr))
	}
	return 0, err
}

// CrashSafeWriteFileLines implements [domain.Storage]. The lines are written
// to a temporary file which then replaces filename, so a crash leaves either
// the old or the new content in place.
func (s *Storage) CrashSafeWriteFileLines(ctx context.Context, filename string, lines [][]byte, dirMode, fileMode os.FileMode) error {
	tempFilename := filename + tempSuffix

	if err := s.flushToStorage(filepath.Dir(filename), true, dirMode); err != nil {
		return err
	}

	exists, err := s.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := s.flushToStorage(filename, false, fileMode); err != nil {
			return err
		}
	}

	if err := s.writeFileLines(ctx, tempFilename, lines, fileMode); err != nil {
		return err
	}
	if err := s.flushToStorage(tempFilename, false, fileMode); err != nil {
		return err
	}
	if err := s.ops.Rename(tempFilename, filename); err != nil {
		return ioErr(err)
	}
	return s.flushToStorage(filepath.Dir(filename), true, dirMode)
}

// EnsureDatafileIntegrity implements [domain.Storage].
func (s *Storage) EnsureDatafileIntegrity(filename string, mode os.FileMode) error {
	tempFilename := filename + tempSuffix

	exists, err := s.Exists(filename)
	if err != nil {
		return err
	}
	// last write completed
	if exists {
		return nil
	}

	tempExists, err := s.Exists(tempFilename)
	if err != nil {
		return err
	}
	// new database
	if !tempExists {
		return ioErr(s.ops.WriteFile(filename, nil, mode))
	}
	return ioErr(s.ops.Rename(tempFilename, filename))
}

// EnsureParentDirectoryExists implements [domain.Storage].
func (s *Storage) EnsureParentDirectoryExists(filename string, mode os.FileMode) error {
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return ioErr(err)
	}
	return ioErr(osSpecificEnsureDir(s.ops, dir, mode))
}

// Exists implements [domain.Storage].
func (s *Storage) Exists(filename string) (bool, error) {
	if _, err := s.ops.Stat(filename); err != nil {
		if s.ops.IsNotExist(err) {
			return false, nil
		}
		return false, ioErr(err)
	}
	return true, nil
}

func (s *Storage) flushToStorage(filename string, isDir bool, mode os.FileMode) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}

	f, err := s.ops.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := osSpecificSync(f, isDir); err != nil {
		_ = f.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := f.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}
	return nil
}

// ReadFileStream implements [domain.Storage]. Reads fail once ctx is done.
func (s *Storage) ReadFileStream(ctx context.Context, filename string, mode os.FileMode) (io.ReadCloser, error) {
	f, err := s.ops.OpenFile(filename, os.O_RDONLY, mode)
	if err != nil {
		return nil, ioErr(err)
	}
	return readCloser{Reader: contextio.NewReader(ctx, f), Closer: f}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (s *Storage) writeFileLines(ctx context.Context, filename string, lines [][]byte, mode os.FileMode) error {
	f, err := s.ops.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return ioErr(err)
	}
	defer f.Close()

	w := bufio.NewWriter(contextio.NewWriter(ctx, f))
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return s.writeErr(ctx, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return s.writeErr(ctx, err)
		}
	}
	return s.writeErr(ctx, w.Flush())
}

func (s *Storage) writeErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ioErr(err)
}

// Remove implements [domain.Storage].
func (s *Storage) Remove(filename string) error {
	return ioErr(s.ops.Remove(filename))
}
