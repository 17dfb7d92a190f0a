// Package capsule gates the admission of externally produced nodes into a
// graph. A capsule's manifest is checked by an external Verifier before its
// node may be inserted; cryptography lives entirely in the Verifier.
package capsule

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
)

// RootSentinel is the id every capsule lineage must end at.
const RootSentinel = "⊙₀"

// Tag marks the node a capsule carries. Admit only inserts nodes tagged
// with their manifest's id.
func Tag(id string) string {
	return "capsule:" + id
}

// Manifest describes a capsule. Signatures are not part of it; a Verifier
// obtains them however it likes, usually keyed by Hash.
type Manifest struct {
	ID     string
	Parent string

	// Lineage runs from Parent up to RootSentinel, which is always last.
	Lineage []string

	Metadata map[string]string
}

// Proof is a Verifier's verdict.
type Proof struct {
	SignatureValid bool
	LineageValid   bool
}

// Valid reports whether both checks passed.
func (p Proof) Valid() bool {
	return p.SignatureValid && p.LineageValid
}

// Verifier checks a manifest's signature and lineage.
type Verifier interface {
	Verify(ctx context.Context, m Manifest) (Proof, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, m Manifest) (Proof, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, m Manifest) (Proof, error) {
	return f(ctx, m)
}

// ErrVerification matches every *VerificationError.
var ErrVerification = errors.New("capsule verification failed")

// VerificationError rejects a capsule. Nothing was inserted.
type VerificationError struct {
	CapsuleID string
	Proof     Proof
	Reason    string

	// Err is the Verifier's own error, if it returned one.
	Err error
}

func (e *VerificationError) Error() string {
	msg := fmt.Sprintf("capsule %q rejected: %s", e.CapsuleID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VerificationError) Unwrap() error { return e.Err }

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerification
}

// Encode renders m as an IR object with keys id, lineage, metadata and,
// when set, parent.
func (m Manifest) Encode() ir.IRObject {
	lineage := make(ir.IRArray, len(m.Lineage))
	for i, l := range m.Lineage {
		lineage[i] = ir.IRString(l)
	}
	meta := make(ir.IRObject, len(m.Metadata))
	for k, v := range m.Metadata {
		meta[k] = ir.IRString(v)
	}
	obj := ir.IRObject{
		"id":       ir.IRString(m.ID),
		"lineage":  lineage,
		"metadata": meta,
	}
	if m.Parent != "" {
		obj["parent"] = ir.IRString(m.Parent)
	}
	return obj
}

// CanonicalBytes returns the bytes a signature over m covers.
func (m Manifest) CanonicalBytes() ([]byte, error) {
	return ir.MarshalCanonical(m.Encode())
}

// Hash identifies m's content.
func (m Manifest) Hash() (string, error) {
	return ir.HashValue(ir.DomainManifest, m.Encode())
}

// CheckLineage validates the structure of m's lineage: a non-empty id, a
// lineage ending at RootSentinel and, when Parent is set, starting at it.
// It is the part of verification that needs no keys, and Verifiers
// typically call it to fill Proof.LineageValid.
func CheckLineage(m Manifest) error {
	switch {
	case m.ID == "":
		return errors.New("manifest id is empty")
	case len(m.Lineage) == 0:
		return errors.New("lineage is empty")
	case m.Lineage[len(m.Lineage)-1] != RootSentinel:
		return fmt.Errorf("lineage must end at %s", RootSentinel)
	case m.Parent != "" && m.Lineage[0] != m.Parent:
		return fmt.Errorf("lineage starts at %q, parent is %q", m.Lineage[0], m.Parent)
	case slices.Contains(m.Lineage[:len(m.Lineage)-1], m.ID):
		return errors.New("lineage contains the capsule itself")
	}
	return nil
}

// Admit verifies m with v and, only if the signature and lineage are both
// valid and the lineage ends at RootSentinel, inserts node into g. node must
// carry Tag(m.ID). Verification failures are never retried and leave g
// unchanged.
func Admit(ctx context.Context, g *graph.Graph, v Verifier, m Manifest, node graph.Node) error {
	if !slices.Contains(node.Metadata.Tags, Tag(m.ID)) {
		return &VerificationError{CapsuleID: m.ID, Reason: fmt.Sprintf("node %s is not tagged %s", node.ID, Tag(m.ID))}
	}
	proof, err := v.Verify(ctx, m)
	if err != nil {
		return &VerificationError{CapsuleID: m.ID, Proof: proof, Reason: "verifier failed", Err: err}
	}
	switch {
	case !proof.SignatureValid:
		return &VerificationError{CapsuleID: m.ID, Proof: proof, Reason: "invalid signature"}
	case !proof.LineageValid:
		return &VerificationError{CapsuleID: m.ID, Proof: proof, Reason: "invalid lineage"}
	}
	if err := CheckLineage(m); err != nil {
		return &VerificationError{CapsuleID: m.ID, Proof: proof, Reason: err.Error()}
	}
	if err := g.Insert(node); err != nil {
		return fmt.Errorf("admit capsule %q: %w", m.ID, err)
	}
	return nil
}
