package storage

// Package storage abstracts where trained model artifacts and dataset
// archives end up: a local directory, or a GCS bucket.

import (
	"errors"
	"io"
	"time"
)

var ErrNoPublicUrl = errors.New("storage backend has no public URLs")

// Store is an abstraction of a blob store for training artifacts.
type Store interface {
	// When finished, you must close the WriteCloser
	Put(name string) (io.WriteCloser, error)

	// When finished, you must close Object.Reader
	Open(name string) (*Object, error)

	Delete(name string) error
}

// Object is an element in blob storage.
type Object struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

// PutFile writes content to the store under name.
func PutFile(s Store, name string, content io.Reader) error {
	f, err := s.Put(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

// ReadFile reads the entire object into memory.
func ReadFile(s Store, name string) ([]byte, error) {
	obj, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer obj.Reader.Close()
	return io.ReadAll(obj.Reader)
}
