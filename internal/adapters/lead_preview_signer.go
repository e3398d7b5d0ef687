package adapters

import (
	"context"

	"homeaccess_backend/internal/adapters/storage"
	leadsvc "homeaccess_backend/internal/leads/service"
)

// LeadPreviewSigner generates presigned download URLs for lead preview images.
type LeadPreviewSigner struct {
	storage storage.ObjectStore
	bucket  string
}

// NewLeadPreviewSigner creates a new preview signer adapter.
func NewLeadPreviewSigner(store storage.ObjectStore, bucket string) *LeadPreviewSigner {
	return &LeadPreviewSigner{storage: store, bucket: bucket}
}

// PreviewURL returns a presigned URL for the given preview object key.
func (p *LeadPreviewSigner) PreviewURL(ctx context.Context, objectKey string) (string, error) {
	presigned, err := p.storage.GenerateDownloadURL(ctx, p.bucket, objectKey)
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}

// Compile-time check that LeadPreviewSigner implements leads/service.PreviewSigner.
var _ leadsvc.PreviewSigner = (*LeadPreviewSigner)(nil)
