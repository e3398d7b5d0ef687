package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FingerprintInput identifies the content a lead was created from.
type FingerprintInput struct {
	HomeownerID   uuid.UUID
	ScanID        *uuid.UUID
	ScanCreatedAt *time.Time
	Title         string
	Location      string
}

// Fingerprint derives the deduplication hash of a lead: SHA-256 over
// "homeowner:scan:scanCreatedAt" for scan-backed leads and
// "homeowner:title:location" otherwise, hex-encoded.
func Fingerprint(in FingerprintInput) string {
	sum := sha256.Sum256([]byte(fingerprintSource(in)))
	return hex.EncodeToString(sum[:])
}

func fingerprintSource(in FingerprintInput) string {
	if in.ScanID != nil {
		createdAt := ""
		if in.ScanCreatedAt != nil {
			createdAt = in.ScanCreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return strings.Join([]string{in.HomeownerID.String(), in.ScanID.String(), createdAt}, ":")
	}
	return strings.Join([]string{in.HomeownerID.String(), in.Title, in.Location}, ":")
}
