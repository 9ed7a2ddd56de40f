package ports

import (
	"context"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
)

// Auth is the account side of the backend.
//
// Calls acting on the signed-in user (UpdateEmail, UpdatePassword,
// UpdateProfile, IDToken) return domain.ErrNoCurrentUser when signed out.
type Auth interface {
	// CurrentUser returns the signed-in user, or nil. The pointer only
	// changes when the user changes.
	CurrentUser() *domain.User

	ApplyActionCode(ctx context.Context, code string) error
	CheckActionCode(ctx context.Context, code string) (*domain.ActionCodeInfo, error)
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	VerifyPasswordResetCode(ctx context.Context, code string) (string, error)
	SendPasswordResetEmail(ctx context.Context, email string) error

	CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*domain.UserCredential, error)
	FetchProvidersForEmail(ctx context.Context, email string) ([]string, error)
	GetRedirectResult(ctx context.Context) (*domain.UserCredential, error)

	SignInAndRetrieveDataWithCredential(ctx context.Context, credential domain.Credential) (*domain.UserCredential, error)
	SignInAnonymously(ctx context.Context) (*domain.UserCredential, error)
	SignInWithCredential(ctx context.Context, credential domain.Credential) (*domain.User, error)
	SignInWithCustomToken(ctx context.Context, token string) (*domain.UserCredential, error)
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (*domain.UserCredential, error)
	SignInWithPhoneNumber(ctx context.Context, phoneNumber, verifier string) (*domain.ConfirmationResult, error)
	// ConfirmPhoneNumber completes a phone sign-in with the code sent to the phone.
	ConfirmPhoneNumber(ctx context.Context, verificationID, code string) (*domain.UserCredential, error)
	SignInWithPopup(ctx context.Context, provider domain.Provider) (*domain.UserCredential, error)
	// SignInWithRedirect starts a redirect flow; the outcome is read with GetRedirectResult.
	SignInWithRedirect(ctx context.Context, provider domain.Provider) error
	SignOut(ctx context.Context) error

	UpdateEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, password string) error
	UpdateProfile(ctx context.Context, profile domain.Profile) error
	IDToken(ctx context.Context) (string, error)

	// OnAuthStateChanged emits the current user right away and then on
	// every sign-in or sign-out.
	OnAuthStateChanged(e stream.Emitter[*domain.User]) (stream.Token, error)
	// OnIDTokenChanged emits like OnAuthStateChanged, plus whenever the
	// signed-in user's token is refreshed.
	OnIDTokenChanged(e stream.Emitter[*domain.User]) (stream.Token, error)
	Unsubscribe(token stream.Token)
}
