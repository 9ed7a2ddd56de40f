package executor

import (
	"context"
	"fmt"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/tree"
)

type effect func(ctx context.Context) (any, error)

// payload wraps fn so that it receives the action's payload as P, or fails
// with domain.ErrInvalidPayload.
func payload[P domain.Payload](a domain.Action, fn func(context.Context, P) (any, error)) effect {
	return func(ctx context.Context) (any, error) {
		p, ok := a.Payload().(P)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects %T, got %T", domain.ErrInvalidPayload, a.Kind(), p, a.Payload())
		}
		return fn(ctx, p)
	}
}

func ack(kind domain.Kind, path string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return domain.Ack{Kind: kind, Path: path}, nil
}

// effect resolves the backend call for a. It reports false for kinds outside
// the closed set.
func (x *Executor) effect(a domain.Action) (effect, bool) {
	auth := x.backend.Auth()
	db := x.backend.Database()
	kind := a.Kind()

	signedIn := func(fn effect) effect {
		return func(ctx context.Context) (any, error) {
			if auth.CurrentUser() == nil {
				return nil, domain.ErrNoCurrentUser
			}
			return fn(ctx)
		}
	}

	switch kind {
	case domain.KindApplyActionCode:
		return payload(a, func(ctx context.Context, p domain.CodePayload) (any, error) {
			return ack(kind, "", auth.ApplyActionCode(ctx, p.Code))
		}), true

	case domain.KindCheckActionCode:
		return payload(a, func(ctx context.Context, p domain.CodePayload) (any, error) {
			return auth.CheckActionCode(ctx, p.Code)
		}), true

	case domain.KindConfirmPasswordReset:
		return payload(a, func(ctx context.Context, p domain.PasswordResetPayload) (any, error) {
			return ack(kind, "", auth.ConfirmPasswordReset(ctx, p.Code, p.NewPassword))
		}), true

	case domain.KindCreateUser:
		// Two chained calls: create the account, then set its profile.
		return payload(a, func(ctx context.Context, p domain.CreateUserPayload) (any, error) {
			cred, err := auth.CreateUserWithEmailAndPassword(ctx, p.Email, p.Password)
			if err != nil {
				return nil, err
			}
			var profile domain.Profile
			if p.DisplayName != "" {
				profile.DisplayName = &p.DisplayName
			}
			if p.PhotoURL != "" {
				profile.PhotoURL = &p.PhotoURL
			}
			if err := auth.UpdateProfile(ctx, profile); err != nil {
				return nil, err
			}
			updated := *cred
			if u := auth.CurrentUser(); u != nil {
				updated.User = u
			}
			return &updated, nil
		}), true

	case domain.KindCreateUserWithEmailAndPassword:
		return payload(a, func(ctx context.Context, p domain.EmailPasswordPayload) (any, error) {
			return auth.CreateUserWithEmailAndPassword(ctx, p.Email, p.Password)
		}), true

	case domain.KindGoOffline:
		return payload(a, func(ctx context.Context, _ domain.NoPayload) (any, error) {
			return ack(kind, "", db.GoOffline(ctx))
		}), true

	case domain.KindGoOnline:
		return payload(a, func(ctx context.Context, _ domain.NoPayload) (any, error) {
			return ack(kind, "", db.GoOnline(ctx))
		}), true

	case domain.KindPush:
		return payload(a, func(ctx context.Context, p domain.RefValuePayload) (any, error) {
			child, err := db.Ref(p.Path).Push(ctx, p.Value)
			if err != nil {
				return nil, err
			}
			return domain.PushResult{Key: child.Key(), Path: child.Path()}, nil
		}), true

	case domain.KindRemove:
		return payload(a, func(ctx context.Context, p domain.RefPayload) (any, error) {
			return ack(kind, tree.Clean(p.Path), db.Ref(p.Path).Remove(ctx))
		}), true

	case domain.KindSendPasswordResetEmail:
		return payload(a, func(ctx context.Context, p domain.EmailPayload) (any, error) {
			return ack(kind, "", auth.SendPasswordResetEmail(ctx, p.Email))
		}), true

	case domain.KindSet:
		return payload(a, func(ctx context.Context, p domain.RefValuePayload) (any, error) {
			return ack(kind, tree.Clean(p.Path), db.Ref(p.Path).Set(ctx, p.Value))
		}), true

	case domain.KindSetPriority:
		return payload(a, func(ctx context.Context, p domain.RefPriorityPayload) (any, error) {
			return ack(kind, tree.Clean(p.Path), db.Ref(p.Path).SetPriority(ctx, p.Priority))
		}), true

	case domain.KindSetWithPriority:
		return payload(a, func(ctx context.Context, p domain.RefValuePriorityPayload) (any, error) {
			return ack(kind, tree.Clean(p.Path), db.Ref(p.Path).SetWithPriority(ctx, p.Value, p.Priority))
		}), true

	case domain.KindSignInAndRetrieveDataWithCredential:
		return payload(a, func(ctx context.Context, p domain.CredentialPayload) (any, error) {
			return auth.SignInAndRetrieveDataWithCredential(ctx, p.Credential)
		}), true

	case domain.KindSignInAnonymously:
		return payload(a, func(ctx context.Context, _ domain.NoPayload) (any, error) {
			return auth.SignInAnonymously(ctx)
		}), true

	case domain.KindSignInWithCredential:
		return payload(a, func(ctx context.Context, p domain.CredentialPayload) (any, error) {
			return auth.SignInWithCredential(ctx, p.Credential)
		}), true

	case domain.KindSignInWithCustomToken:
		return payload(a, func(ctx context.Context, p domain.CustomTokenPayload) (any, error) {
			return auth.SignInWithCustomToken(ctx, p.Token)
		}), true

	case domain.KindSignInWithEmailAndPassword:
		return payload(a, func(ctx context.Context, p domain.EmailPasswordPayload) (any, error) {
			return auth.SignInWithEmailAndPassword(ctx, p.Email, p.Password)
		}), true

	case domain.KindSignInWithPhoneNumber:
		return payload(a, func(ctx context.Context, p domain.PhoneNumberPayload) (any, error) {
			return auth.SignInWithPhoneNumber(ctx, p.PhoneNumber, p.Verifier)
		}), true

	case domain.KindSignInWithPopup:
		return payload(a, func(ctx context.Context, p domain.ProviderPayload) (any, error) {
			return auth.SignInWithPopup(ctx, p.Provider)
		}), true

	case domain.KindSignInWithRedirect:
		return payload(a, func(ctx context.Context, p domain.ProviderPayload) (any, error) {
			return ack(kind, "", auth.SignInWithRedirect(ctx, p.Provider))
		}), true

	case domain.KindSignOut:
		return payload(a, func(ctx context.Context, _ domain.NoPayload) (any, error) {
			return ack(kind, "", auth.SignOut(ctx))
		}), true

	case domain.KindTransaction:
		return payload(a, func(ctx context.Context, p domain.TransactionPayload) (any, error) {
			if p.Update == nil {
				return nil, fmt.Errorf("%w: transaction without update function", domain.ErrInvalidPayload)
			}
			return db.Ref(p.Path).Transaction(ctx, p.Update)
		}), true

	case domain.KindUpdate:
		return payload(a, func(ctx context.Context, p domain.UpdatePayload) (any, error) {
			return ack(kind, tree.Clean(p.Path), db.Ref(p.Path).Update(ctx, p.Values))
		}), true

	case domain.KindUpdateEmail:
		return signedIn(payload(a, func(ctx context.Context, p domain.EmailPayload) (any, error) {
			return ack(kind, "", auth.UpdateEmail(ctx, p.Email))
		})), true

	case domain.KindUpdatePassword:
		return signedIn(payload(a, func(ctx context.Context, p domain.PasswordPayload) (any, error) {
			return ack(kind, "", auth.UpdatePassword(ctx, p.Password))
		})), true

	case domain.KindUpdateProfile:
		return signedIn(payload(a, func(ctx context.Context, p domain.ProfilePayload) (any, error) {
			return ack(kind, "", auth.UpdateProfile(ctx, domain.Profile{DisplayName: p.DisplayName, PhotoURL: p.PhotoURL}))
		})), true

	case domain.KindVerifyPasswordResetCode:
		return payload(a, func(ctx context.Context, p domain.CodePayload) (any, error) {
			return auth.VerifyPasswordResetCode(ctx, p.Code)
		}), true
	}
	return nil, false
}
