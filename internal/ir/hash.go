package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainNode     = "genesis/node/v1"
	DomainRoot     = "genesis/root/v1"
	DomainGraph    = "genesis/graph/v1"
	DomainMatch    = "genesis/match/v1"
	DomainSnapshot = "genesis/snapshot/v1"
	DomainRuleSet  = "genesis/ruleset/v1"
	DomainManifest = "genesis/manifest/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes hashes already-canonical bytes under domain.
// Callers must pass the output of MarshalCanonical, never ad-hoc JSON.
func HashBytes(domain string, canonical []byte) string {
	return hashWithDomain(domain, canonical)
}

// HashValue canonically marshals v and hashes it under domain.
func HashValue(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MatchResultHash computes the content hash of a match result.
// Alternatives keep their order; bindings inside each are key-sorted.
func MatchResultHash(result MatchResult) (string, error) {
	v, err := EncodeMatchResult(result)
	if err != nil {
		return "", fmt.Errorf("MatchResultHash: %w", err)
	}
	return HashValue(DomainMatch, v)
}

// MustMatchResultHash is like MatchResultHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMatchResultHash(result MatchResult) string {
	h, err := MatchResultHash(result)
	if err != nil {
		panic(err)
	}
	return h
}
