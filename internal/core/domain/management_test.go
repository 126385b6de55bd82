package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagement(t *testing.T) {
	definition := &PresentationDefinition{ID: "definition-1"}

	management, err := NewManagement(definition, nil, 15*time.Minute, true, []string{"did:example:issuer"}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatePending, management.State)
	assert.True(t, management.IsPending())
	assert.False(t, management.IsExpired())
	assert.Nil(t, management.WalletResponse)
	assert.Equal(t, int64(900), management.ExpirationInSeconds)
	assert.NotEmpty(t, management.RequestNonce)
	assert.NotContains(t, management.RequestNonce, "=")

	other, err := NewManagement(definition, nil, time.Minute, true, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, management.RequestNonce, other.RequestNonce)
}

func TestManagementWalletResponseNilIffPending(t *testing.T) {
	management, err := NewManagement(&PresentationDefinition{}, nil, time.Minute, true, nil, nil)
	require.NoError(t, err)

	assert.True(t, management.IsPending())
	assert.Nil(t, management.WalletResponse)

	management.Succeed(map[string]any{"given_name": "Ada"})
	assert.False(t, management.IsPending())
	require.NotNil(t, management.WalletResponse)
	assert.Nil(t, management.WalletResponse.ErrorCode)
	assert.Equal(t, "Ada", management.WalletResponse.CredentialSubjectData["given_name"])
}

func TestManagementIdempotentClose(t *testing.T) {
	t.Run("fail after succeed keeps the first outcome", func(t *testing.T) {
		management, err := NewManagement(&PresentationDefinition{}, nil, time.Minute, true, nil, nil)
		require.NoError(t, err)

		management.Succeed(map[string]any{"given_name": "Ada"})
		management.Fail(ErrCredentialInvalid, "should not stick")

		assert.Equal(t, StateSuccess, management.State)
		assert.Nil(t, management.WalletResponse.ErrorCode)
	})

	t.Run("succeed after fail keeps the first outcome", func(t *testing.T) {
		management, err := NewManagement(&PresentationDefinition{}, nil, time.Minute, true, nil, nil)
		require.NoError(t, err)

		management.Fail(ErrCredentialRevoked, "credential has been revoked")
		management.Succeed(map[string]any{"given_name": "Ada"})

		assert.Equal(t, StateFailed, management.State)
		require.NotNil(t, management.WalletResponse.ErrorCode)
		assert.Equal(t, ErrCredentialRevoked, *management.WalletResponse.ErrorCode)
		assert.Nil(t, management.WalletResponse.CredentialSubjectData)
	})

	t.Run("second fail keeps the first code", func(t *testing.T) {
		management, err := NewManagement(&PresentationDefinition{}, nil, time.Minute, true, nil, nil)
		require.NoError(t, err)

		management.Fail(ErrCredentialExpired, "first")
		management.Fail(ErrCredentialInvalid, "second")

		assert.Equal(t, ErrCredentialExpired, *management.WalletResponse.ErrorCode)
		assert.Equal(t, "first", management.WalletResponse.ErrorDescription)
	})
}

func TestManagementExpiry(t *testing.T) {
	management, err := NewManagement(&PresentationDefinition{}, nil, time.Minute, true, nil, nil)
	require.NoError(t, err)
	assert.False(t, management.IsExpired())

	management.ExpiresAt = time.Now().Add(-time.Second)
	assert.True(t, management.IsExpired())
	// expiry does not close the record by itself
	assert.True(t, management.IsPending())
}

func TestManagementClientRejection(t *testing.T) {
	management, err := NewManagement(nil, &DcqlQuery{}, time.Minute, true, nil, nil)
	require.NoError(t, err)

	management.FailDueToClientRejection("holder declined")

	assert.Equal(t, StateFailed, management.State)
	require.NotNil(t, management.WalletResponse.ErrorCode)
	assert.Equal(t, ErrClientRejected, *management.WalletResponse.ErrorCode)
	assert.Equal(t, "holder declined", management.WalletResponse.ErrorDescription)
}
