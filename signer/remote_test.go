package signer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSigningService signs digests with a local key, like the real service
// does inside its enclave.
func fakeSigningService(t *testing.T, key *secp256k1.PrivateKey) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /attestation", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "oracle", r.Header.Get("X-Service-ID"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"key_version": "v1",
			"pubkey_hex":  hex.EncodeToString(key.PubKey().SerializeCompressed()),
		})
	})
	mux.HandleFunc("POST /sign", func(w http.ResponseWriter, r *http.Request) {
		var req signRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, signDomain, req.Domain)
		digest, err := hex.DecodeString(req.Data)
		require.NoError(t, err)

		sig := ecdsa.SignCompact(key, digest, true)[1:]
		_ = json.NewEncoder(w).Encode(signResponse{Signature: hex.EncodeToString(sig), KeyVersion: "v1"})
	})
	return httptest.NewServer(mux)
}

func TestRemote_SignAndPublicKey(t *testing.T) {
	key := secp256k1.PrivKeyFromBytes(mustHex(t, testSecret))
	srv := fakeSigningService(t, key)
	defer srv.Close()

	r, err := NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL + "/", ServiceID: "oracle"})
	require.NoError(t, err)
	assert.Equal(t, testPublicKey, r.PublicKey())

	msg := []byte{0x05, 0x03, 0x06}
	sig, err := r.Sign(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, verify(t, r.PublicKey(), sig, msg))

	local, err := NewLocal(testSecret)
	require.NoError(t, err)
	want, err := local.Sign(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, want, sig)
}

func TestRemote_Errors(t *testing.T) {
	t.Run("attestation unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL})

		assert.ErrorIs(t, err, ErrSigning)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("sign rejected", func(t *testing.T) {
		key := secp256k1.PrivKeyFromBytes(mustHex(t, testSecret))
		mux := http.NewServeMux()
		mux.HandleFunc("GET /attestation", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"pubkey_hex":"` + hex.EncodeToString(key.PubKey().SerializeCompressed()) + `"}`))
		})
		mux.HandleFunc("POST /sign", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		r, err := NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = r.Sign(context.Background(), []byte("x"))

		var se *SigningError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "sign", se.Op)
	})

	t.Run("bad public key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"pubkey_hex":"0102"}`))
		}))
		defer srv.Close()

		_, err := NewRemote(context.Background(), RemoteConfig{BaseURL: srv.URL})
		assert.ErrorIs(t, err, ErrSigning)
	})
}
