package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
)

// StoreFS is a filesystem-based artifact store
type StoreFS struct {
	Root string
	log  logs.Log
}

func NewStoreFS(log logs.Log, root string) (*StoreFS, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create artifact directory %v: %w", absRoot, err)
	}
	return &StoreFS{
		Root: absRoot,
		log:  log,
	}, nil
}

func (s *StoreFS) Put(name string) (io.WriteCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	s.log.Infof("Writing artifact %v", name)
	fullPath := filepath.Join(s.Root, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
}

func (s *StoreFS) Open(name string) (*Object, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.Root, name))
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &Object{
		Reader:     file,
		ModifiedAt: st.ModTime(),
		Size:       st.Size(),
	}, nil
}

func (s *StoreFS) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.log.Infof("Deleting artifact %v", name)
	return os.Remove(filepath.Join(s.Root, name))
}

func validName(name string) error {
	if strings.Contains(name, "..") {
		return fmt.Errorf("Invalid artifact name %v", name)
	}
	return nil
}
