package domain

// User is an immutable snapshot of an account. Backends hand out a new
// *User whenever the account changes, so pointer identity tells whether the
// signed-in user is still the same snapshot.
type User struct {
	UID           string   `json:"uid"`
	Email         string   `json:"email,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	PhotoURL      string   `json:"photo_url,omitempty"`
	PhoneNumber   string   `json:"phone_number,omitempty"`
	Anonymous     bool     `json:"anonymous"`
	EmailVerified bool     `json:"email_verified"`
	ProviderIDs   []string `json:"provider_ids,omitempty"`
}

// Provider ids known to the reference backends.
const (
	ProviderPassword  = "password"
	ProviderPhone     = "phone"
	ProviderAnonymous = "anonymous"
	ProviderCustom    = "custom"
)

// Credential is an auth provider credential.
type Credential struct {
	ProviderID string `json:"provider_id" mapstructure:"provider_id"`
	Token      string `json:"token,omitempty" mapstructure:"token"`
	Secret     string `json:"secret,omitempty" mapstructure:"secret"`
}

// Provider selects a federated identity provider for popup or redirect flows.
type Provider struct {
	ProviderID string   `json:"provider_id" mapstructure:"provider_id"`
	Scopes     []string `json:"scopes,omitempty" mapstructure:"scopes"`
}

// Operation types of a UserCredential.
const (
	OperationSignIn = "signIn"
	OperationLink   = "link"
)

// UserCredential is the result of a sign-in.
type UserCredential struct {
	User               *User               `json:"user"`
	Credential         *Credential         `json:"credential,omitempty"`
	OperationType      string              `json:"operation_type"`
	AdditionalUserInfo *AdditionalUserInfo `json:"additional_user_info,omitempty"`
}

type AdditionalUserInfo struct {
	ProviderID string `json:"provider_id"`
	IsNewUser  bool   `json:"is_new_user"`
}

// Action code operations.
const (
	OperationPasswordReset = "PASSWORD_RESET"
	OperationVerifyEmail   = "VERIFY_EMAIL"
)

// ActionCodeInfo describes an out-of-band action code.
type ActionCodeInfo struct {
	Operation string `json:"operation"`
	Email     string `json:"email"`
}

// ConfirmationResult is returned by a phone sign-in; the verification id is
// confirmed with the code sent to the phone.
type ConfirmationResult struct {
	VerificationID string `json:"verification_id"`
}

// Profile changes. Nil fields are left unchanged.
type Profile struct {
	DisplayName *string
	PhotoURL    *string
}
