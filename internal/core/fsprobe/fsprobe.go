// Package fsprobe answers whether a path exists on the local filesystem.
package fsprobe

import "os"

// Checker reports whether a path currently exists.
type Checker interface {
	Exists(path string) bool
}

// OS checks the host filesystem. Directories count as existing.
type OS struct{}

// New returns a Checker backed by os.Stat.
func New() *OS {
	return &OS{}
}

// Exists returns false on any stat error, including permission errors.
func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Func adapts a plain function to the Checker interface.
type Func func(path string) bool

func (f Func) Exists(path string) bool { return f(path) }
