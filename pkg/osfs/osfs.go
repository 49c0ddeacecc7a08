package osfs

//go:generate mockgen -source=./osfs.go -destination=./osfs_mock.go -package=osfs FileSystem

import (
	"io/fs"
	"os"
)

type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	MkdirAll(path string, perm os.FileMode) error
	IsNotExist(err error) bool
}

type osFS struct{}

func New() FileSystem {
	return &osFS{}
}

func (*osFS) Stat(name string) (fs.FileInfo, error)        { return os.Stat(name) }
func (*osFS) ReadFile(name string) ([]byte, error)         { return os.ReadFile(name) }
func (*osFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (*osFS) IsNotExist(err error) bool                    { return os.IsNotExist(err) }
