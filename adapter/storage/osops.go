package storage

import "os"

// osOps is the subset of the os package used by [Storage]. Tests replace it
// to inject failures.
type osOps interface {
	IsNotExist(err error) bool
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Rename(oldpath string, newpath string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

type osImpl struct{}

func (o *osImpl) IsNotExist(err error) bool { return os.IsNotExist(err) }

func (o *osImpl) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (o *osImpl) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (o *osImpl) Remove(name string) error { return os.Remove(name) }

func (o *osImpl) Rename(oldpath string, newpath string) error { return os.Rename(oldpath, newpath) }

func (o *osImpl) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (o *osImpl) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
