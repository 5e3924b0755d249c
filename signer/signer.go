// Package signer turns packed oracle messages into Tezos secp256k1
// signatures. Keys live with a custodian (Azure Key Vault, a remote signing
// service) or, for development, in process.
package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/blake2b"

	"github.com/yitech/harbinger/b58check"
)

// Signer signs arbitrary bytes with an oracle identity.
type Signer interface {
	// Sign returns the spsig1-encoded signature over blake2b-256(msg).
	Sign(ctx context.Context, msg []byte) (string, error)

	// PublicKey returns the sppk-encoded key resolved at construction.
	PublicKey() string
}

// ErrSigning matches every *SigningError.
var ErrSigning = errors.New("signing error")

// SigningError reports a custodian that could not be reached, refused the
// request, or returned something that is not a signature.
type SigningError struct {
	Op  string
	Err error
}

func (e *SigningError) Error() string { return fmt.Sprintf("signer: %s: %v", e.Op, e.Err) }

func (e *SigningError) Is(target error) bool { return target == ErrSigning }

func (e *SigningError) Unwrap() error { return e.Err }

// Digest is the 32-byte hash that gets signed for msg.
func Digest(msg []byte) [32]byte {
	return blake2b.Sum256(msg)
}

// EncodeSignature normalizes a 64-byte r||s signature to low-S and encodes
// it with the spsig1 prefix.
func EncodeSignature(rs []byte) (string, error) {
	if len(rs) != 64 {
		return "", fmt.Errorf("signature is %d bytes, want 64", len(rs))
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(rs[:32]); overflow || r.IsZero() {
		return "", errors.New("signature r out of range")
	}
	if overflow := s.SetByteSlice(rs[32:]); overflow || s.IsZero() {
		return "", errors.New("signature s out of range")
	}
	if s.IsOverHalfOrder() {
		s.Negate()
	}

	var out [64]byte
	r.PutBytesUnchecked(out[:32])
	s.PutBytesUnchecked(out[32:])
	return b58check.Encode(b58check.Secp256k1Signature, out[:]), nil
}

// EncodePublicKey parses a compressed or uncompressed secp256k1 key and
// returns its sppk form.
func EncodePublicKey(raw []byte) (string, error) {
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return "", err
	}
	return b58check.Encode(b58check.Secp256k1PublicKey, pub.SerializeCompressed()), nil
}
