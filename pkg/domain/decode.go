package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// NewKey returns a fresh correlation key.
func NewKey() string {
	return uuid.NewString()
}

// payloadFor returns a pointer to an empty payload of the type kind expects.
func payloadFor(kind Kind) (any, error) {
	switch kind {
	case KindApplyActionCode, KindCheckActionCode, KindVerifyPasswordResetCode:
		return &CodePayload{}, nil
	case KindConfirmPasswordReset:
		return &PasswordResetPayload{}, nil
	case KindCreateUser:
		return &CreateUserPayload{}, nil
	case KindCreateUserWithEmailAndPassword, KindSignInWithEmailAndPassword:
		return &EmailPasswordPayload{}, nil
	case KindSendPasswordResetEmail, KindUpdateEmail:
		return &EmailPayload{}, nil
	case KindUpdatePassword:
		return &PasswordPayload{}, nil
	case KindUpdateProfile:
		return &ProfilePayload{}, nil
	case KindSignInAndRetrieveDataWithCredential, KindSignInWithCredential:
		return &CredentialPayload{}, nil
	case KindSignInWithCustomToken:
		return &CustomTokenPayload{}, nil
	case KindSignInWithPhoneNumber:
		return &PhoneNumberPayload{}, nil
	case KindSignInWithPopup, KindSignInWithRedirect:
		return &ProviderPayload{}, nil
	case KindPush, KindSet:
		return &RefValuePayload{}, nil
	case KindRemove:
		return &RefPayload{}, nil
	case KindSetPriority:
		return &RefPriorityPayload{}, nil
	case KindSetWithPriority:
		return &RefValuePriorityPayload{}, nil
	case KindUpdate:
		return &UpdatePayload{}, nil
	case KindGoOffline, KindGoOnline, KindSignInAnonymously, KindSignOut:
		return &NoPayload{}, nil
	case KindTransaction:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
}

// DecodeAction builds a typed action from loose input such as a decoded JSON
// object. Unknown fields are rejected.
func DecodeAction(kindName, key string, fields map[string]any) (Action, error) {
	kind, err := ParseKind(kindName)
	if err != nil {
		return Action{}, err
	}

	target, err := payloadFor(kind)
	if err != nil {
		return Action{}, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: true,
	})
	if err != nil {
		return Action{}, err
	}
	if err := decoder.Decode(fields); err != nil {
		return Action{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, kind, err)
	}

	payload := derefPayload(target)
	if err := validatePriority(payload); err != nil {
		return Action{}, err
	}
	return NewAction(kind, payload).As(key), nil
}

func derefPayload(target any) Payload {
	switch p := target.(type) {
	case *CodePayload:
		return *p
	case *PasswordResetPayload:
		return *p
	case *CreateUserPayload:
		return *p
	case *EmailPasswordPayload:
		return *p
	case *EmailPayload:
		return *p
	case *PasswordPayload:
		return *p
	case *ProfilePayload:
		return *p
	case *CredentialPayload:
		return *p
	case *CustomTokenPayload:
		return *p
	case *PhoneNumberPayload:
		return *p
	case *ProviderPayload:
		return *p
	case *RefPayload:
		return *p
	case *RefValuePayload:
		return *p
	case *RefPriorityPayload:
		return *p
	case *RefValuePriorityPayload:
		return *p
	case *UpdatePayload:
		return *p
	}
	return NoPayload{}
}

func validatePriority(p Payload) error {
	var prio Priority
	switch v := p.(type) {
	case RefPriorityPayload:
		prio = v.Priority
	case RefValuePriorityPayload:
		prio = v.Priority
	default:
		return nil
	}
	if _, err := NormalizePriority(prio); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
