// Package b58check implements the prefixed base58check encoding used for
// Tezos keys and signatures.
package b58check

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Prefix is a version prefix prepended to the payload before encoding. It
// determines the leading characters of the text form.
type Prefix struct {
	Name        string
	Bytes       []byte
	PayloadSize int
}

var (
	Ed25519PublicKey   = Prefix{"edpk", []byte{13, 15, 37, 217}, 32}
	Secp256k1PublicKey = Prefix{"sppk", []byte{3, 254, 226, 86}, 33}
	P256PublicKey      = Prefix{"p2pk", []byte{3, 178, 139, 127}, 33}

	Secp256k1SecretKey = Prefix{"spsk", []byte{17, 162, 224, 201}, 32}

	Secp256k1Signature = Prefix{"spsig1", []byte{13, 115, 101, 19, 63}, 64}
)

// PublicKeys lists the public key prefixes in curve tag order.
var PublicKeys = []Prefix{Ed25519PublicKey, Secp256k1PublicKey, P256PublicKey}

var (
	ErrChecksum = errors.New("b58check: bad checksum")
	ErrPrefix   = errors.New("b58check: unknown prefix")
)

// Encode returns base58(prefix || payload || checksum).
func Encode(p Prefix, payload []byte) string {
	buf := make([]byte, 0, len(p.Bytes)+len(payload)+4)
	buf = append(buf, p.Bytes...)
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf)...)
	return base58.Encode(buf)
}

// Decode verifies s against p and returns the payload.
func Decode(s string, p Prefix) ([]byte, error) {
	raw, err := decode(s)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(raw, p.Bytes) {
		return nil, fmt.Errorf("%w: want %s", ErrPrefix, p.Name)
	}
	payload := raw[len(p.Bytes):]
	if p.PayloadSize > 0 && len(payload) != p.PayloadSize {
		return nil, fmt.Errorf("b58check: %s payload is %d bytes, want %d", p.Name, len(payload), p.PayloadSize)
	}
	return payload, nil
}

// DecodeAny tries each candidate prefix in turn and returns the first match.
func DecodeAny(s string, candidates ...Prefix) (Prefix, []byte, error) {
	raw, err := decode(s)
	if err != nil {
		return Prefix{}, nil, err
	}
	for _, p := range candidates {
		if bytes.HasPrefix(raw, p.Bytes) && len(raw)-len(p.Bytes) == p.PayloadSize {
			return p, raw[len(p.Bytes):], nil
		}
	}
	return Prefix{}, nil, ErrPrefix
}

func decode(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("b58check: %w", err)
	}
	if len(raw) < 4 {
		return nil, ErrChecksum
	}
	body, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	if !bytes.Equal(checksum(body), sum) {
		return nil, ErrChecksum
	}
	return body, nil
}

func checksum(b []byte) []byte {
	h := sha256.Sum256(b)
	h = sha256.Sum256(h[:])
	return h[:4]
}
