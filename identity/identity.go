// Package identity defines the fixed-size, ordered identifiers shared by
// every other package in the module: PeerID (a peer's network identity,
// derived from its public key) and URN (a content-addressed project or
// resource identifier).
package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PeerID is an opaque 32-byte identifier derived from a peer's public key.
// Equatable, hashable (usable as a map key), and totally ordered.
type PeerID [32]byte

// NewPeerID derives a PeerID from a public key.
func NewPeerID(pubKey []byte) PeerID {
	return PeerID(sha256.Sum256(pubKey))
}

// PeerIDFromHex parses the hex representation produced by String.
func PeerIDFromHex(s string) (PeerID, error) {
	var id PeerID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse peer id: %w", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("parse peer id: want %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (p PeerID) String() string { return hex.EncodeToString(p[:]) }

// IsZero reports whether p is the zero value.
func (p PeerID) IsZero() bool { return p == PeerID{} }

// Compare returns -1, 0, or 1 as p is less than, equal to, or greater than other.
func (p PeerID) Compare(other PeerID) int { return bytes.Compare(p[:], other[:]) }

// Less reports whether p sorts before other; convenient for sort.Slice.
func (p PeerID) Less(other PeerID) bool { return p.Compare(other) < 0 }

// URN is an opaque content-addressed identifier of a project or resource.
// Equatable and hashable; ordering matches the underlying byte sequence so
// waiting-room tie-breaks ("ties by URN order", spec §4.2) are deterministic.
type URN [32]byte

// NewURN derives a URN from the content it addresses (e.g. a git commit or
// tree hash).
func NewURN(content []byte) URN {
	return URN(sha256.Sum256(content))
}

// URNFromHex parses the bare hex representation produced by MarshalText. The
// "rad:git:" prefix that String adds is not accepted.
func URNFromHex(s string) (URN, error) {
	var u URN
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, fmt.Errorf("parse urn: %w", err)
	}
	if len(b) != len(u) {
		return u, fmt.Errorf("parse urn: want %d bytes, got %d", len(u), len(b))
	}
	copy(u[:], b)
	return u, nil
}

func (u URN) String() string { return "rad:git:" + hex.EncodeToString(u[:]) }

// IsZero reports whether u is the zero value.
func (u URN) IsZero() bool { return u == URN{} }

// Compare returns -1, 0, or 1 as u is less than, equal to, or greater than other.
func (u URN) Compare(other URN) int { return bytes.Compare(u[:], other[:]) }

// Less reports whether u sorts before other.
func (u URN) Less(other URN) bool { return u.Compare(other) < 0 }

// MarshalText and UnmarshalText let URN and PeerID serialize as plain hex
// strings in JSON/YAML, matching the lowerCamelCase wire shape spec.md §6
// requires for the surrounding structures.
func (u URN) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(u[:])), nil }

func (u *URN) UnmarshalText(text []byte) error {
	v, err := URNFromHex(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func (p PeerID) MarshalText() ([]byte, error) { return []byte(hex.EncodeToString(p[:])), nil }

func (p *PeerID) UnmarshalText(text []byte) error {
	v, err := PeerIDFromHex(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
