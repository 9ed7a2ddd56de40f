package domain

import (
	"fmt"
	"strings"
)

// Kind identifies the backend operation an Action requests.
// The set is closed: values outside it are never executed.
type Kind int

const (
	KindApplyActionCode Kind = iota
	KindCheckActionCode
	KindConfirmPasswordReset
	KindCreateUser
	KindCreateUserWithEmailAndPassword
	KindGoOffline
	KindGoOnline
	KindPush
	KindRemove
	KindSendPasswordResetEmail
	KindSet
	KindSetPriority
	KindSetWithPriority
	KindSignInAndRetrieveDataWithCredential
	KindSignInAnonymously
	KindSignInWithCredential
	KindSignInWithCustomToken
	KindSignInWithEmailAndPassword
	KindSignInWithPhoneNumber
	KindSignInWithPopup
	KindSignInWithRedirect
	KindSignOut
	KindTransaction
	KindUpdate
	KindUpdateEmail
	KindUpdatePassword
	KindUpdateProfile
	KindVerifyPasswordResetCode

	kindCount
)

var kindNames = [kindCount]string{
	"ApplyActionCode",
	"CheckActionCode",
	"ConfirmPasswordReset",
	"CreateUser",
	"CreateUserWithEmailAndPassword",
	"GoOffline",
	"GoOnline",
	"Push",
	"Remove",
	"SendPasswordResetEmail",
	"Set",
	"SetPriority",
	"SetWithPriority",
	"SignInAndRetrieveDataWithCredential",
	"SignInAnonymously",
	"SignInWithCredential",
	"SignInWithCustomToken",
	"SignInWithEmailAndPassword",
	"SignInWithPhoneNumber",
	"SignInWithPopup",
	"SignInWithRedirect",
	"SignOut",
	"Transaction",
	"Update",
	"UpdateEmail",
	"UpdatePassword",
	"UpdateProfile",
	"VerifyPasswordResetCode",
}

// Kinds returns every valid Kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, kindCount)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a kind name. Matching ignores case.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
