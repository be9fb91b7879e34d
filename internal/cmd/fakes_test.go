package cmd

import (
	"io/fs"
	"time"
)

type fakeDir struct {
	name string
}

func (fi fakeDir) Name() string       { return fi.name }
func (fi fakeDir) Size() int64        { return 0 }
func (fi fakeDir) Mode() fs.FileMode  { return fs.ModeDir | 0o755 }
func (fi fakeDir) ModTime() time.Time { return time.Unix(0, 0) }
func (fi fakeDir) IsDir() bool        { return true }
func (fi fakeDir) Sys() any           { return nil }
