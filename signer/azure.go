package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
)

// KeyVault is the subset of *azkeys.Client the Azure signer uses.
type KeyVault interface {
	Sign(ctx context.Context, name, version string, parameters azkeys.SignParameters, options *azkeys.SignOptions) (azkeys.SignResponse, error)
	GetKey(ctx context.Context, name, version string, options *azkeys.GetKeyOptions) (azkeys.GetKeyResponse, error)
}

// AzureConfig identifies a P-256K key in Azure Key Vault.
type AzureConfig struct {
	VaultURL   string
	KeyName    string
	KeyVersion string // empty selects the latest version

	// Credential defaults to azidentity.NewDefaultAzureCredential.
	Credential azcore.TokenCredential
	// Client overrides the Key Vault client (tests).
	Client KeyVault
}

// Azure signs with an ES256K key held in Azure Key Vault.
type Azure struct {
	client     KeyVault
	keyName    string
	keyVersion string
	publicKey  string
}

// NewAzure connects to Key Vault and resolves the key's public half.
func NewAzure(ctx context.Context, cfg AzureConfig) (*Azure, error) {
	if cfg.KeyName == "" {
		return nil, &SigningError{Op: "connect", Err: errors.New("key name is required")}
	}

	client := cfg.Client
	if client == nil {
		cred := cfg.Credential
		if cred == nil {
			dc, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, &SigningError{Op: "connect", Err: fmt.Errorf("credential: %w", err)}
			}
			cred = dc
		}
		kc, err := azkeys.NewClient(cfg.VaultURL, cred, nil)
		if err != nil {
			return nil, &SigningError{Op: "connect", Err: err}
		}
		client = kc
	}

	resp, err := client.GetKey(ctx, cfg.KeyName, cfg.KeyVersion, nil)
	if err != nil {
		return nil, &SigningError{Op: "get public key", Err: describe(err)}
	}
	jwk := resp.Key
	if jwk == nil || len(jwk.X) == 0 || len(jwk.Y) == 0 {
		return nil, &SigningError{Op: "get public key", Err: errors.New("key has no EC coordinates")}
	}
	if jwk.Crv != nil && *jwk.Crv != azkeys.CurveNameP256K {
		return nil, &SigningError{Op: "get public key", Err: fmt.Errorf("curve %s, want %s", *jwk.Crv, azkeys.CurveNameP256K)}
	}

	raw := make([]byte, 0, 65)
	raw = append(raw, 0x04)
	raw = append(raw, leftPad(jwk.X, 32)...)
	raw = append(raw, leftPad(jwk.Y, 32)...)
	pk, err := EncodePublicKey(raw)
	if err != nil {
		return nil, &SigningError{Op: "get public key", Err: err}
	}

	return &Azure{
		client:     client,
		keyName:    cfg.KeyName,
		keyVersion: cfg.KeyVersion,
		publicKey:  pk,
	}, nil
}

func (a *Azure) Sign(ctx context.Context, msg []byte) (string, error) {
	digest := Digest(msg)
	alg := azkeys.SignatureAlgorithmES256K

	resp, err := a.client.Sign(ctx, a.keyName, a.keyVersion, azkeys.SignParameters{
		Algorithm: &alg,
		Value:     digest[:],
	}, nil)
	if err != nil {
		return "", &SigningError{Op: "sign", Err: describe(err)}
	}

	sig, err := EncodeSignature(resp.Result)
	if err != nil {
		return "", &SigningError{Op: "sign", Err: err}
	}
	return sig, nil
}

func (a *Azure) PublicKey() string { return a.publicKey }

// describe keeps the status code and error code of a Key Vault failure in
// the message.
func describe(err error) error {
	var re *azcore.ResponseError
	if errors.As(err, &re) {
		return fmt.Errorf("key vault %d %s: %w", re.StatusCode, re.ErrorCode, err)
	}
	return err
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
