// Package model defines the data structures for mutation testing.
package model

// Path represents a file system path.
type Path string

// FileContent is a Go source file selected for mutation.
type FileContent struct {
	Path    Path   // absolute path on disk
	Rel     Path   // path relative to the module root
	Package Path   // package directory relative to the module root
	Hash    string // SHA-256 of Source
	Source  []byte
}

// Project describes the module under test.
type Project struct {
	Root    Path   // directory holding go.mod
	Module  string // module path declared in go.mod
	Targets []FileContent
	// Tests are go test package patterns relative to Root.
	Tests []string
}
