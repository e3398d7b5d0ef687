package adapters

import (
	"context"
	"errors"
	"testing"

	"homeaccess_backend/internal/adapters/storage"
)

type fakeObjectStore struct {
	bucket string
	key    string
	err    error
}

func (f *fakeObjectStore) EnsureBucketExists(context.Context, string) error { return nil }

func (f *fakeObjectStore) GenerateDownloadURL(_ context.Context, bucket, fileKey string) (*storage.PresignedURL, error) {
	f.bucket, f.key = bucket, fileKey
	if f.err != nil {
		return nil, f.err
	}
	return &storage.PresignedURL{URL: "https://cdn.test/" + bucket + "/" + fileKey + "?sig=1", FileKey: fileKey}, nil
}

func TestLeadPreviewSignerUsesConfiguredBucket(t *testing.T) {
	store := &fakeObjectStore{}
	signer := NewLeadPreviewSigner(store, "lead-previews")

	url, err := signer.PreviewURL(context.Background(), "scans/1/front.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.bucket != "lead-previews" || store.key != "scans/1/front.jpg" {
		t.Fatalf("unexpected storage call bucket=%q key=%q", store.bucket, store.key)
	}
	if url != "https://cdn.test/lead-previews/scans/1/front.jpg?sig=1" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestLeadPreviewSignerPropagatesErrors(t *testing.T) {
	signer := NewLeadPreviewSigner(&fakeObjectStore{err: errors.New("minio down")}, "lead-previews")
	if _, err := signer.PreviewURL(context.Background(), "a.png"); err == nil {
		t.Fatal("expected error")
	}
}
