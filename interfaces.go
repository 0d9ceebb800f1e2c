//go:build unix

package gposix

import "io"

// Resource is an owned kernel resource.
type Resource interface {
	Fd() int
	Valid() bool
	Close() error
}

// Duplicable resources can produce an independent kernel handle to the
// same underlying object.
type Duplicable interface {
	Dup() (Descriptor, error)
}

// Stream is a resource that supports blocking byte-stream I/O.
type Stream interface {
	Resource
	io.Reader
	io.Writer
}

// Seeker is implemented by resources with a file cursor.
type Seeker interface {
	Seek(offset int64, whence int) (int64, error)
}

// Mappable resources have a size and can back a Mapping.
type Mappable interface {
	Resource
	Size() (int64, error)
}

// Identity is a numeric user or group id.
type Identity interface {
	ID() int
}

var (
	_ Stream     = (*Descriptor)(nil)
	_ Duplicable = (*Descriptor)(nil)
	_ Mappable   = (*File)(nil)
	_ Seeker     = (*File)(nil)
	_ Stream     = (*LocalSocket)(nil)
	_ io.Reader  = (*MappedFile)(nil)
)
