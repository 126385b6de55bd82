package services

import (
	"context"
	"crypto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/repositories"
)

func dcqlPidQuery() *domain.DcqlQuery {
	return &domain.DcqlQuery{
		Credentials: []domain.DcqlCredential{
			{
				ID:     "pid",
				Format: "dc+sd-jwt",
				Meta:   &domain.DcqlCredentialMeta{VctValues: []string{"test-vct"}},
				Claims: []domain.DcqlClaim{{Path: []any{"given_name"}}},
			},
		},
	}
}

func saveManagement(t *testing.T, management *domain.Management) ports.ManagementRepository {
	t.Helper()
	repo := repositories.NewManagement()
	require.NoError(t, repo.Save(context.Background(), storage.Pgx, management))
	return repo
}

func verificationService(registry ports.VerifierRegistry) ports.VerificationService {
	producer := NewCallbackProducer(repositories.NewCallback(), true)
	return NewVerification(storage, repositories.NewManagement(), producer, registry)
}

func sdJWTRegistry(t *testing.T, status ports.StatusListVerifier, issuerPublic crypto.PublicKey) ports.VerifierRegistry {
	t.Helper()
	verifier := NewSdJWTVerifier(
		&fakeDIDResolver{keys: map[string]crypto.PublicKey{testIssuerKID: issuerPublic}},
		status,
		SdJWTVerifierConfig{AcceptedAlgorithms: []string{"ES256"}, ProofTimeWindow: 2 * time.Minute},
	)
	return NewVerifierRegistry(verifier)
}

func pendingCallbackCount(t *testing.T, management *domain.Management) int {
	t.Helper()
	events, err := repositories.NewCallback().FindForDispatch(context.Background(), storage.Pgx, dispatchBatchSize)
	require.NoError(t, err)
	count := 0
	for _, event := range events {
		if event.VerificationID == management.ID {
			count++
		}
	}
	return count
}

func TestProcessWalletResponseDcqlSuccess(t *testing.T) {
	requireStorage(t)
	ctx := context.Background()

	issuerKey := genES256Key(t)
	management, err := domain.NewManagement(nil, dcqlPidQuery(), 15*time.Minute, true, []string{testIssuerDID}, nil)
	require.NoError(t, err)
	repo := saveManagement(t, management)

	token := buildSdJWT(t, issuerKey,
		map[string]any{"iss": testIssuerDID, "vct": "test-vct"},
		[]disclosureSpec{{salt: "salt-1", name: "given_name", value: "Ada"}})

	service := verificationService(sdJWTRegistry(t, passingStatusVerifier{}, &issuerKey.PublicKey))
	closed, err := service.ProcessWalletResponse(ctx, management.ID, ports.WalletResponse{
		VPTokens: map[string][]string{"pid": {token}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateSuccess, closed.State)
	require.NotNil(t, closed.WalletResponse)
	pidClaims, ok := closed.WalletResponse.CredentialSubjectData["pid"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", pidClaims["given_name"])

	stored, err := repo.GetByID(ctx, storage.Pgx, management.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSuccess, stored.State)
	require.NotNil(t, stored.WalletResponse)
	pidClaims, ok = stored.WalletResponse.CredentialSubjectData["pid"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", pidClaims["given_name"])

	assert.Equal(t, 1, pendingCallbackCount(t, management))
}

func TestProcessWalletResponseRevokedCredential(t *testing.T) {
	requireStorage(t)
	ctx := context.Background()

	issuerKey := genES256Key(t)
	const statusURI = "https://status.example.com/list/1"
	statusToken := buildStatusListToken(t, issuerKey, testIssuerDID, statusURI, 2, []int{0, 1, 0})

	didResolver := &fakeDIDResolver{keys: map[string]crypto.PublicKey{testIssuerKID: &issuerKey.PublicKey}}
	status := NewStatusListVerifier(
		&fakeStatusListResolver{tokens: map[string]string{statusURI: statusToken}},
		didResolver, 1<<20, []string{"ES256"})

	management, err := domain.NewManagement(nil, dcqlPidQuery(), 15*time.Minute, true, []string{testIssuerDID}, nil)
	require.NoError(t, err)
	repo := saveManagement(t, management)

	token := buildSdJWT(t, issuerKey,
		map[string]any{
			"iss":    testIssuerDID,
			"vct":    "test-vct",
			"status": map[string]any{"status_list": map[string]any{"uri": statusURI, "idx": 1}},
		},
		[]disclosureSpec{{salt: "salt-1", name: "given_name", value: "Ada"}})

	service := verificationService(sdJWTRegistry(t, status, &issuerKey.PublicKey))
	closed, err := service.ProcessWalletResponse(ctx, management.ID, ports.WalletResponse{
		VPTokens: map[string][]string{"pid": {token}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, closed.State)
	require.NotNil(t, closed.WalletResponse)
	require.NotNil(t, closed.WalletResponse.ErrorCode)
	assert.Equal(t, domain.ErrCredentialRevoked, *closed.WalletResponse.ErrorCode)

	stored, err := repo.GetByID(ctx, storage.Pgx, management.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, stored.State)

	assert.Equal(t, 1, pendingCallbackCount(t, management))
}

func TestProcessWalletResponseClientRejection(t *testing.T) {
	requireStorage(t)
	ctx := context.Background()

	management, err := domain.NewManagement(nil, dcqlPidQuery(), 15*time.Minute, true, nil, nil)
	require.NoError(t, err)
	repo := saveManagement(t, management)

	service := verificationService(NewVerifierRegistry())
	closed, err := service.ProcessWalletResponse(ctx, management.ID, ports.WalletResponse{
		Error:            "access_denied",
		ErrorDescription: "holder declined",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, closed.State)
	require.NotNil(t, closed.WalletResponse)
	require.NotNil(t, closed.WalletResponse.ErrorCode)
	assert.Equal(t, domain.ErrClientRejected, *closed.WalletResponse.ErrorCode)
	assert.Equal(t, "holder declined", closed.WalletResponse.ErrorDescription)

	stored, err := repo.GetByID(ctx, storage.Pgx, management.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, stored.State)
}

func TestProcessWalletResponseExpiredRequest(t *testing.T) {
	requireStorage(t)
	ctx := context.Background()

	management, err := domain.NewManagement(nil, dcqlPidQuery(), -time.Minute, true, nil, nil)
	require.NoError(t, err)
	repo := saveManagement(t, management)

	service := verificationService(NewVerifierRegistry())
	_, err = service.ProcessWalletResponse(ctx, management.ID, ports.WalletResponse{
		VPTokens: map[string][]string{"pid": {"token"}},
	})
	require.Error(t, err)
	vErr := domain.AsVerificationError(err)
	assert.Equal(t, domain.ErrVerificationProcessClosed, vErr.Code)

	// the record is rejected, not transitioned
	stored, err := repo.GetByID(ctx, storage.Pgx, management.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, stored.State)
	assert.Nil(t, stored.WalletResponse)
	assert.Equal(t, 0, pendingCallbackCount(t, management))
}

func TestProcessWalletResponseKeepsFirstOutcome(t *testing.T) {
	requireStorage(t)
	ctx := context.Background()

	issuerKey := genES256Key(t)
	management, err := domain.NewManagement(nil, dcqlPidQuery(), 15*time.Minute, true, []string{testIssuerDID}, nil)
	require.NoError(t, err)
	repo := saveManagement(t, management)

	token := buildSdJWT(t, issuerKey,
		map[string]any{"iss": testIssuerDID, "vct": "test-vct"},
		[]disclosureSpec{{salt: "salt-1", name: "given_name", value: "Ada"}})

	service := verificationService(sdJWTRegistry(t, passingStatusVerifier{}, &issuerKey.PublicKey))
	response := ports.WalletResponse{VPTokens: map[string][]string{"pid": {token}}}

	_, err = service.ProcessWalletResponse(ctx, management.ID, response)
	require.NoError(t, err)

	_, err = service.ProcessWalletResponse(ctx, management.ID, response)
	require.Error(t, err)
	assert.Equal(t, domain.ErrVerificationProcessClosed, domain.AsVerificationError(err).Code)

	stored, err := repo.GetByID(ctx, storage.Pgx, management.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSuccess, stored.State)
	assert.Equal(t, 1, pendingCallbackCount(t, management))
}

func TestProcessWalletResponseUnknownRequest(t *testing.T) {
	requireStorage(t)

	service := verificationService(NewVerifierRegistry())
	_, err := service.ProcessWalletResponse(context.Background(), uuid.New(), ports.WalletResponse{VPToken: "token"})
	assert.ErrorIs(t, err, repositories.ErrManagementNotFound)
}
