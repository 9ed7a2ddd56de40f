package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/firestream/pkg/adapters/memory"
	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_Contract(t *testing.T) {
	ports.RunBackendContract(t, memory.New())
}

func TestAuth_PasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	auth := b.Auth()

	_, err := auth.CreateUserWithEmailAndPassword(ctx, "ada@example.com", "old")
	require.NoError(t, err)
	require.NoError(t, auth.SignOut(ctx))

	assert.ErrorIs(t, auth.SendPasswordResetEmail(ctx, "nobody@example.com"), domain.ErrUserNotFound)
	require.NoError(t, auth.SendPasswordResetEmail(ctx, "ada@example.com"))

	outbox := b.Accounts().Outbox()
	require.Len(t, outbox, 1)
	code := outbox[0].Code
	assert.Equal(t, domain.OperationPasswordReset, outbox[0].Operation)

	info, err := auth.CheckActionCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", info.Email)

	email, err := auth.VerifyPasswordResetCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)

	require.NoError(t, auth.ConfirmPasswordReset(ctx, code, "new"))
	assert.ErrorIs(t, auth.ConfirmPasswordReset(ctx, code, "again"), domain.ErrInvalidCode, "codes are single use")

	_, err = auth.SignInWithEmailAndPassword(ctx, "ada@example.com", "old")
	assert.ErrorIs(t, err, domain.ErrWrongPassword)
	_, err = auth.SignInWithEmailAndPassword(ctx, "ada@example.com", "new")
	assert.NoError(t, err)
}

func TestAuth_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	auth := b.Auth()

	cred, err := auth.CreateUserWithEmailAndPassword(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.False(t, cred.User.EmailVerified)

	code, err := b.Accounts().IssueActionCode("ada@example.com", domain.OperationVerifyEmail)
	require.NoError(t, err)
	require.NoError(t, auth.ApplyActionCode(ctx, code))

	assert.True(t, auth.CurrentUser().EmailVerified)
	assert.ErrorIs(t, auth.ApplyActionCode(ctx, code), domain.ErrInvalidCode)
}

func TestAuth_PhoneSignIn(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	auth := b.Auth()

	_, err := auth.SignInWithPhoneNumber(ctx, "+15550100", "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	confirmation, err := auth.SignInWithPhoneNumber(ctx, "+15550100", "recaptcha-ok")
	require.NoError(t, err)
	outbox := b.Accounts().Outbox()
	require.Len(t, outbox, 1)

	_, err = auth.ConfirmPhoneNumber(ctx, confirmation.VerificationID, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	cred, err := auth.ConfirmPhoneNumber(ctx, confirmation.VerificationID, outbox[0].Code)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", cred.User.PhoneNumber)
	assert.True(t, cred.AdditionalUserInfo.IsNewUser)
}

func TestAuth_CustomToken(t *testing.T) {
	ctx := context.Background()
	b := memory.New(memory.WithSecret([]byte("test-secret")))
	auth := b.Auth()

	token, err := b.Accounts().CreateCustomToken("service-1", map[string]any{"admin": true})
	require.NoError(t, err)

	cred, err := auth.SignInWithCustomToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "service-1", cred.User.UID)

	idToken, err := auth.IDToken(ctx)
	require.NoError(t, err)
	uid, err := b.Accounts().VerifyIDToken(idToken)
	require.NoError(t, err)
	assert.Equal(t, "service-1", uid)

	other := memory.New(memory.WithSecret([]byte("other-secret")))
	_, err = other.Auth().SignInWithCustomToken(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuth_FederatedAndRedirect(t *testing.T) {
	ctx := context.Background()
	auth := memory.New().Auth()
	github := domain.Provider{ProviderID: "github.com"}

	first, err := auth.SignInWithPopup(ctx, github)
	require.NoError(t, err)
	assert.True(t, first.AdditionalUserInfo.IsNewUser)
	require.NoError(t, auth.SignOut(ctx))

	result, err := auth.GetRedirectResult(ctx)
	require.NoError(t, err)
	assert.Nil(t, result, "no redirect pending")

	require.NoError(t, auth.SignInWithRedirect(ctx, github))
	result, err = auth.GetRedirectResult(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, first.User.UID, result.User.UID)
	assert.False(t, result.AdditionalUserInfo.IsNewUser)

	user, err := auth.SignInWithCredential(ctx, domain.Credential{ProviderID: "google.com", Token: "g-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"google.com"}, user.ProviderIDs)
}

func TestAuth_PasswordCredential(t *testing.T) {
	ctx := context.Background()
	auth := memory.New().Auth()
	_, err := auth.CreateUserWithEmailAndPassword(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	cred, err := auth.SignInAndRetrieveDataWithCredential(ctx, domain.Credential{
		ProviderID: domain.ProviderPassword,
		Token:      "ada@example.com",
		Secret:     "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", cred.User.Email)
}

func TestDatabase_EventsAreDeliveredBeforeWriteReturns(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDatabase()

	var got []any
	token, err := db.Ref("/a").On(domain.EventValue, stream.EmitterFuncs[*domain.Snapshot]{
		NextFunc: func(s *domain.Snapshot) { got = append(got, s.Value) },
	})
	require.NoError(t, err)

	require.NoError(t, db.Ref("/a/b").Set(ctx, 1))
	assert.Equal(t, []any{map[string]any{"b": 1.0}}, got)

	require.NoError(t, db.Ref("/a").Off(domain.EventValue, token))
	require.NoError(t, db.Ref("/a").Remove(ctx))
	assert.Len(t, got, 1)
}

func TestDatabase_ListenerMayReadDuringDelivery(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDatabase()
	ref := db.Ref("/x")

	var seen *domain.Snapshot
	_, err := ref.On(domain.EventValue, stream.EmitterFuncs[*domain.Snapshot]{
		NextFunc: func(*domain.Snapshot) {
			seen, _ = ref.Get(ctx)
		},
	})
	require.NoError(t, err)

	require.NoError(t, ref.Set(ctx, "v"))
	require.NotNil(t, seen)
	assert.Equal(t, "v", seen.Value)
}
