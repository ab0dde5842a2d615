package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
)

// StoreGCS is a Google Cloud Storage-based artifact store
type StoreGCS struct {
	bucketName string
	bucket     *gcs.BucketHandle
	log        logs.Log
}

func NewStoreGCS(log logs.Log, bucketName string) (*StoreGCS, error) {
	client, err := gcs.NewClient(context.Background())
	if err != nil {
		return nil, err
	}
	return &StoreGCS{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		log:        log,
	}, nil
}

func (s *StoreGCS) Put(name string) (io.WriteCloser, error) {
	s.log.Infof("Writing artifact %v to gs://%v", name, s.bucketName)
	return s.bucket.Object(name).NewWriter(context.Background()), nil
}

func (s *StoreGCS) Open(name string) (*Object, error) {
	r, err := s.bucket.Object(name).NewReader(context.Background())
	if err != nil {
		return nil, err
	}
	return &Object{
		Reader:     r,
		ModifiedAt: r.Attrs.LastModified,
		Size:       r.Attrs.Size,
	}, nil
}

func (s *StoreGCS) Delete(name string) error {
	s.log.Infof("Deleting artifact %v from gs://%v", name, s.bucketName)
	return s.bucket.Object(name).Delete(context.Background())
}
