package storage

import "io"

// BlobStore keeps uploaded question files so an import can be audited or
// replayed.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	List(prefix string) ([]string, error)
}
