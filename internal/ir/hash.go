package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for an algorithm change.
const (
	DomainPlaceholder = "specbuilder/placeholder/v1"
	DomainSpec        = "specbuilder/spec/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PlaceholderID computes the id of a symbolic placeholder from the session
// it was created in, its name and the logical time of its creation.
func PlaceholderID(session, name string, seq int64) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"session": Str(session),
		"name":    Str(name),
		"seq":     Int(seq),
	})
	if err != nil {
		return "", fmt.Errorf("PlaceholderID: %w", err)
	}
	return hashWithDomain(DomainPlaceholder, canonical), nil
}

// SpecID computes the content-addressed id of a finished spec record.
// The record's own ID field is ignored.
func SpecID(rec SpecRecord) (string, error) {
	canonical, err := MarshalCanonical(rec.identity())
	if err != nil {
		return "", fmt.Errorf("SpecID: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// MustSpecID is like SpecID but panics on error. Tests only.
func MustSpecID(rec SpecRecord) string {
	id, err := SpecID(rec)
	if err != nil {
		panic(err)
	}
	return id
}
