package signer

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/yitech/harbinger/b58check"
)

// Local holds the secret key in process. Use it for development and tests
// only.
type Local struct {
	key       *secp256k1.PrivateKey
	publicKey string
}

// NewLocal accepts a 32-byte secret as hex or in spsk form.
func NewLocal(secret string) (*Local, error) {
	secret = strings.TrimSpace(secret)

	var raw []byte
	var err error
	if strings.HasPrefix(secret, "spsk") {
		raw, err = b58check.Decode(secret, b58check.Secp256k1SecretKey)
	} else {
		raw, err = hex.DecodeString(strings.TrimPrefix(secret, "0x"))
	}
	if err != nil {
		return nil, &SigningError{Op: "load key", Err: err}
	}
	if len(raw) != 32 {
		return nil, &SigningError{Op: "load key", Err: errors.New("secret key must be 32 bytes")}
	}

	key := secp256k1.PrivKeyFromBytes(raw)
	if key.Key.IsZero() {
		return nil, &SigningError{Op: "load key", Err: errors.New("secret key out of range")}
	}
	return &Local{
		key:       key,
		publicKey: b58check.Encode(b58check.Secp256k1PublicKey, key.PubKey().SerializeCompressed()),
	}, nil
}

// Sign produces a deterministic (RFC 6979) signature.
func (l *Local) Sign(ctx context.Context, msg []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SigningError{Op: "sign", Err: err}
	}
	digest := Digest(msg)
	// SignCompact prefixes a recovery byte to r||s.
	compact := ecdsa.SignCompact(l.key, digest[:], true)
	sig, err := EncodeSignature(compact[1:])
	if err != nil {
		return "", &SigningError{Op: "sign", Err: err}
	}
	return sig, nil
}

func (l *Local) PublicKey() string { return l.publicKey }
