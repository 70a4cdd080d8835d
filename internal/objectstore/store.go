// Package objectstore stores voice preview audio in a storage bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("objectstore: object not found")

// Object is a bucket listing entry. Folders have IsFolder set and no size.
type Object struct {
	Name     string `json:"name"`
	IsFolder bool   `json:"is_folder"`
	Size     int64  `json:"size,omitempty"`
}

type Store interface {
	// Put writes data at path, replacing any existing object when upsert is set.
	Put(ctx context.Context, path, contentType string, data []byte, upsert bool) error
	Move(ctx context.Context, from, to string) error
	// List returns the direct children of prefix ("" is the bucket root).
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, paths ...string) error
	PublicURL(path string) string
}

// StorageError is a non-2xx response from the storage API.
type StorageError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("objectstore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("objectstore: %s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *StorageError) Unwrap() error { return e.Err }
