package gateways

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/httpclient"
)

const testDID = "did:example:issuer"

func testJWK(t *testing.T) (*ecdsa.PrivateKey, json.RawMessage) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	jwk := jose.JSONWebKey{Key: &key.PublicKey}
	data, err := jwk.MarshalJSON()
	require.NoError(t, err)
	return key, data
}

func didDocumentBody(jwk json.RawMessage, wrapped bool) []byte {
	doc := map[string]any{
		"id": testDID,
		"verificationMethod": []map[string]any{
			{
				"id":           testDID + "#key-1",
				"type":         "JsonWebKey2020",
				"publicKeyJwk": jwk,
			},
		},
	}
	var body any = doc
	if wrapped {
		body = map[string]any{"didDocument": doc}
	}
	data, _ := json.Marshal(body)
	return data
}

func TestDIDResolverResolveKey(t *testing.T) {
	key, jwk := testJWK(t)

	for _, wrapped := range []bool{false, true} {
		t.Run(fmt.Sprintf("wrapped=%v", wrapped), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.URL.Path, "/1.0/identifiers/")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(didDocumentBody(jwk, wrapped))
			}))
			defer server.Close()

			resolver := NewDIDResolver(httpclient.DefaultClientWithRetry(time.Second), server.URL)

			resolved, err := resolver.ResolveKey(context.Background(), testDID+"#key-1")
			require.NoError(t, err)
			publicKey, ok := resolved.(*ecdsa.PublicKey)
			require.True(t, ok)
			assert.True(t, key.PublicKey.Equal(publicKey))
		})
	}
}

func TestDIDResolverSelectsFirstMethodWithoutFragment(t *testing.T) {
	key, jwk := testJWK(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(didDocumentBody(jwk, false))
	}))
	defer server.Close()

	resolver := NewDIDResolver(httpclient.DefaultClientWithRetry(time.Second), server.URL)

	resolved, err := resolver.ResolveKey(context.Background(), testDID)
	require.NoError(t, err)
	publicKey, ok := resolved.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.True(t, key.PublicKey.Equal(publicKey))
}

func TestDIDResolverErrors(t *testing.T) {
	_, jwk := testJWK(t)

	t.Run("not a did", func(t *testing.T) {
		resolver := NewDIDResolver(httpclient.DefaultClientWithRetry(time.Second), "http://localhost")
		_, err := resolver.ResolveKey(context.Background(), "issuer#key-1")
		assert.Error(t, err)
	})

	t.Run("unknown verification method", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(didDocumentBody(jwk, false))
		}))
		defer server.Close()

		resolver := NewDIDResolver(httpclient.DefaultClientWithRetry(time.Second), server.URL)
		_, err := resolver.ResolveKey(context.Background(), testDID+"#key-2")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("resolver unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		resolver := NewDIDResolver(httpclient.DefaultClientWithRetry(time.Second), server.URL)
		_, err := resolver.ResolveKey(context.Background(), testDID)
		assert.Error(t, err)
	})
}
