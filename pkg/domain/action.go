package domain

import "fmt"

// Action is an immutable command for the driver.
//
// The zero value is not a valid action. Build actions with NewAction or the
// helpers in this package (SignOut, Ref(path).Set, ...).
type Action struct {
	kind    Kind
	key     string
	payload Payload
}

// NewAction builds an action of the given kind. The payload is not checked
// against the kind here; the executor reports mismatches as ErrInvalidPayload.
func NewAction(kind Kind, payload Payload) Action {
	if payload == nil {
		payload = NoPayload{}
	}
	return Action{kind: kind, payload: payload}
}

func (a Action) Kind() Kind       { return a.kind }
func (a Action) Key() string      { return a.key }
func (a Action) Payload() Payload { return a.payload }

// As returns a copy of a carrying the correlation key.
func (a Action) As(key string) Action {
	a.key = key
	return a
}

func (a Action) String() string {
	if a.key == "" {
		return a.kind.String()
	}
	return fmt.Sprintf("%s(%s)", a.kind, a.key)
}

// Payload is the closed set of typed action payloads.
type Payload interface {
	isPayload()
}

// NoPayload is carried by actions that need no input.
type NoPayload struct{}

// CodePayload carries an out-of-band action code.
type CodePayload struct {
	Code string `json:"code" mapstructure:"code"`
}

// PasswordResetPayload confirms a password reset.
type PasswordResetPayload struct {
	Code        string `json:"code" mapstructure:"code"`
	NewPassword string `json:"new_password" mapstructure:"new_password"`
}

// CreateUserPayload creates an account and sets its profile.
type CreateUserPayload struct {
	Email       string `json:"email" mapstructure:"email"`
	Password    string `json:"password" mapstructure:"password"`
	DisplayName string `json:"display_name,omitempty" mapstructure:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty" mapstructure:"photo_url"`
}

type EmailPasswordPayload struct {
	Email    string `json:"email" mapstructure:"email"`
	Password string `json:"password" mapstructure:"password"`
}

type EmailPayload struct {
	Email string `json:"email" mapstructure:"email"`
}

type PasswordPayload struct {
	Password string `json:"password" mapstructure:"password"`
}

// ProfilePayload updates the current user's profile. Nil fields are left unchanged.
type ProfilePayload struct {
	DisplayName *string `json:"display_name,omitempty" mapstructure:"display_name"`
	PhotoURL    *string `json:"photo_url,omitempty" mapstructure:"photo_url"`
}

type CredentialPayload struct {
	Credential Credential `json:"credential" mapstructure:"credential"`
}

type CustomTokenPayload struct {
	Token string `json:"token" mapstructure:"token"`
}

// PhoneNumberPayload starts a phone sign-in. Verifier is the application
// verification token (e.g. a reCAPTCHA response).
type PhoneNumberPayload struct {
	PhoneNumber string `json:"phone_number" mapstructure:"phone_number"`
	Verifier    string `json:"verifier" mapstructure:"verifier"`
}

type ProviderPayload struct {
	Provider Provider `json:"provider" mapstructure:"provider"`
}

// RefPayload addresses a database location.
type RefPayload struct {
	Path string `json:"path" mapstructure:"path"`
}

type RefValuePayload struct {
	Path  string `json:"path" mapstructure:"path"`
	Value any    `json:"value" mapstructure:"value"`
}

type RefPriorityPayload struct {
	Path     string   `json:"path" mapstructure:"path"`
	Priority Priority `json:"priority" mapstructure:"priority"`
}

type RefValuePriorityPayload struct {
	Path     string   `json:"path" mapstructure:"path"`
	Value    any      `json:"value" mapstructure:"value"`
	Priority Priority `json:"priority" mapstructure:"priority"`
}

// TransactionPayload atomically rewrites a location with Update.
type TransactionPayload struct {
	Path   string     `json:"path"`
	Update UpdateFunc `json:"-"`
}

// UpdatePayload writes several children at once. Keys may be relative
// slash-separated paths.
type UpdatePayload struct {
	Path   string         `json:"path" mapstructure:"path"`
	Values map[string]any `json:"values" mapstructure:"values"`
}

func (NoPayload) isPayload()               {}
func (CodePayload) isPayload()             {}
func (PasswordResetPayload) isPayload()    {}
func (CreateUserPayload) isPayload()       {}
func (EmailPasswordPayload) isPayload()    {}
func (EmailPayload) isPayload()            {}
func (PasswordPayload) isPayload()         {}
func (ProfilePayload) isPayload()          {}
func (CredentialPayload) isPayload()       {}
func (CustomTokenPayload) isPayload()      {}
func (PhoneNumberPayload) isPayload()      {}
func (ProviderPayload) isPayload()         {}
func (RefPayload) isPayload()              {}
func (RefValuePayload) isPayload()         {}
func (RefPriorityPayload) isPayload()      {}
func (RefValuePriorityPayload) isPayload() {}
func (TransactionPayload) isPayload()      {}
func (UpdatePayload) isPayload()           {}

// Ack is the result of operations that complete without data.
type Ack struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path,omitempty"`
}

// PushResult identifies the location created by a Push.
type PushResult struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// Auth actions.

func ApplyActionCode(code string) Action {
	return NewAction(KindApplyActionCode, CodePayload{Code: code})
}

func CheckActionCode(code string) Action {
	return NewAction(KindCheckActionCode, CodePayload{Code: code})
}

func ConfirmPasswordReset(code, newPassword string) Action {
	return NewAction(KindConfirmPasswordReset, PasswordResetPayload{Code: code, NewPassword: newPassword})
}

func CreateUser(form CreateUserPayload) Action {
	return NewAction(KindCreateUser, form)
}

func CreateUserWithEmailAndPassword(email, password string) Action {
	return NewAction(KindCreateUserWithEmailAndPassword, EmailPasswordPayload{Email: email, Password: password})
}

func SendPasswordResetEmail(email string) Action {
	return NewAction(KindSendPasswordResetEmail, EmailPayload{Email: email})
}

func SignInAndRetrieveDataWithCredential(credential Credential) Action {
	return NewAction(KindSignInAndRetrieveDataWithCredential, CredentialPayload{Credential: credential})
}

func SignInAnonymously() Action {
	return NewAction(KindSignInAnonymously, NoPayload{})
}

func SignInWithCredential(credential Credential) Action {
	return NewAction(KindSignInWithCredential, CredentialPayload{Credential: credential})
}

func SignInWithCustomToken(token string) Action {
	return NewAction(KindSignInWithCustomToken, CustomTokenPayload{Token: token})
}

func SignInWithEmailAndPassword(email, password string) Action {
	return NewAction(KindSignInWithEmailAndPassword, EmailPasswordPayload{Email: email, Password: password})
}

func SignInWithPhoneNumber(phoneNumber, verifier string) Action {
	return NewAction(KindSignInWithPhoneNumber, PhoneNumberPayload{PhoneNumber: phoneNumber, Verifier: verifier})
}

func SignInWithPopup(provider Provider) Action {
	return NewAction(KindSignInWithPopup, ProviderPayload{Provider: provider})
}

func SignInWithRedirect(provider Provider) Action {
	return NewAction(KindSignInWithRedirect, ProviderPayload{Provider: provider})
}

func SignOut() Action {
	return NewAction(KindSignOut, NoPayload{})
}

func UpdateProfile(profile ProfilePayload) Action {
	return NewAction(KindUpdateProfile, profile)
}

func UpdateEmail(email string) Action {
	return NewAction(KindUpdateEmail, EmailPayload{Email: email})
}

func UpdatePassword(password string) Action {
	return NewAction(KindUpdatePassword, PasswordPayload{Password: password})
}

func VerifyPasswordResetCode(code string) Action {
	return NewAction(KindVerifyPasswordResetCode, CodePayload{Code: code})
}

// Database actions.

func GoOffline() Action {
	return NewAction(KindGoOffline, NoPayload{})
}

func GoOnline() Action {
	return NewAction(KindGoOnline, NoPayload{})
}

// RefActions builds actions targeting one database location.
type RefActions struct {
	path string
}

// Ref returns the action builders for path.
func Ref(path string) RefActions {
	return RefActions{path: path}
}

func (r RefActions) Push(value any) Action {
	return NewAction(KindPush, RefValuePayload{Path: r.path, Value: value})
}

func (r RefActions) Remove() Action {
	return NewAction(KindRemove, RefPayload{Path: r.path})
}

func (r RefActions) Set(value any) Action {
	return NewAction(KindSet, RefValuePayload{Path: r.path, Value: value})
}

func (r RefActions) SetPriority(priority Priority) Action {
	return NewAction(KindSetPriority, RefPriorityPayload{Path: r.path, Priority: priority})
}

func (r RefActions) SetWithPriority(value any, priority Priority) Action {
	return NewAction(KindSetWithPriority, RefValuePriorityPayload{Path: r.path, Value: value, Priority: priority})
}

func (r RefActions) Transaction(update UpdateFunc) Action {
	return NewAction(KindTransaction, TransactionPayload{Path: r.path, Update: update})
}

func (r RefActions) Update(values map[string]any) Action {
	return NewAction(KindUpdate, UpdatePayload{Path: r.path, Values: values})
}
