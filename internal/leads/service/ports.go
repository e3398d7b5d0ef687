package service

import (
	"context"

	"github.com/google/uuid"
)

// PreviewSigner turns a stored preview image key into a URL a browser can load.
type PreviewSigner interface {
	PreviewURL(ctx context.Context, objectKey string) (string, error)
}

// ViewTracker records lead views outside the request path.
type ViewTracker interface {
	TrackLeadView(ctx context.Context, leadID uuid.UUID) error
}

// PaymentConfirmer verifies that a contractor has paid for a lead before the
// purchase is committed. A nil confirmer means no payment precondition.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, leadID, contractorID uuid.UUID, reference string) error
}
