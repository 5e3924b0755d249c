package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// signDomain separates oracle payloads from other messages the signing
// service handles.
const signDomain = "tezos-oracle"

// RemoteConfig configures a Remote signer.
type RemoteConfig struct {
	BaseURL   string
	ServiceID string
	Timeout   time.Duration
	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
}

// Remote delegates signing to an HTTP signing service that exposes
// POST /sign and GET /attestation.
type Remote struct {
	baseURL    string
	serviceID  string
	httpClient *http.Client
	publicKey  string
}

type signRequest struct {
	Domain string `json:"domain"`
	Data   string `json:"data"` // hex-encoded digest
}

type signResponse struct {
	Signature  string `json:"signature"` // hex-encoded r||s
	KeyVersion string `json:"key_version"`
}

type attestationResponse struct {
	KeyVersion string `json:"key_version"`
	PubKeyHex  string `json:"pubkey_hex"`
}

// NewRemote creates a Remote signer and resolves its public key.
func NewRemote(ctx context.Context, cfg RemoteConfig) (*Remote, error) {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	r := &Remote{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceID:  cfg.ServiceID,
		httpClient: hc,
	}

	var att attestationResponse
	if err := r.do(ctx, http.MethodGet, "/attestation", nil, &att); err != nil {
		return nil, &SigningError{Op: "get public key", Err: err}
	}
	raw, err := hex.DecodeString(att.PubKeyHex)
	if err != nil {
		return nil, &SigningError{Op: "get public key", Err: fmt.Errorf("decode pubkey_hex: %w", err)}
	}
	if r.publicKey, err = EncodePublicKey(raw); err != nil {
		return nil, &SigningError{Op: "get public key", Err: err}
	}
	return r, nil
}

func (r *Remote) Sign(ctx context.Context, msg []byte) (string, error) {
	digest := Digest(msg)

	var resp signResponse
	req := signRequest{Domain: signDomain, Data: hex.EncodeToString(digest[:])}
	if err := r.do(ctx, http.MethodPost, "/sign", req, &resp); err != nil {
		return "", &SigningError{Op: "sign", Err: err}
	}

	rs, err := hex.DecodeString(resp.Signature)
	if err != nil {
		return "", &SigningError{Op: "sign", Err: fmt.Errorf("decode signature: %w", err)}
	}
	sig, err := EncodeSignature(rs)
	if err != nil {
		return "", &SigningError{Op: "sign", Err: err}
	}
	return sig, nil
}

func (r *Remote) PublicKey() string { return r.publicKey }

func (r *Remote) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Service-ID", r.serviceID)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s - %s", resp.Status, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
