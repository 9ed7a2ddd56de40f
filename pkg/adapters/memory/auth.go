package memory

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
)

// Message is an out-of-band message the auth backend "sent".
type Message struct {
	To        string
	Operation string
	Code      string
}

type account struct {
	user         *domain.User
	passwordHash string
}

type actionCode struct {
	operation string
	uid       string
	email     string
}

type pendingPhone struct {
	phoneNumber string
	code        string
}

// Auth implements ports.Auth in memory.
// Safe for concurrent use.
type Auth struct {
	secret   []byte
	tokenTTL time.Duration

	mu         sync.Mutex
	accounts   map[string]*account // by uid
	byEmail    map[string]string
	byIdentity map[string]string // provider:subject -> uid
	current    *domain.User
	codes      map[string]actionCode
	phones     map[string]pendingPhone
	redirect   *domain.UserCredential
	outbox     []Message

	stateListeners map[stream.Token]stream.Emitter[*domain.User]
	tokenListeners map[stream.Token]stream.Emitter[*domain.User]

	delivery dispatcher
}

func newAuth(secret []byte, ttl time.Duration) *Auth {
	return &Auth{
		secret:         secret,
		tokenTTL:       ttl,
		accounts:       make(map[string]*account),
		byEmail:        make(map[string]string),
		byIdentity:     make(map[string]string),
		codes:          make(map[string]actionCode),
		phones:         make(map[string]pendingPhone),
		stateListeners: make(map[stream.Token]stream.Emitter[*domain.User]),
		tokenListeners: make(map[stream.Token]stream.Emitter[*domain.User]),
	}
}

func hashPassword(uid, password string) string {
	sum := sha256.Sum256([]byte(uid + ":" + password))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u *domain.User, mutate func(*domain.User)) *domain.User {
	c := *u
	c.ProviderIDs = slices.Clone(u.ProviderIDs)
	mutate(&c)
	return &c
}

// CurrentUser returns the signed-in user, or nil.
func (a *Auth) CurrentUser() *domain.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Outbox returns the messages sent so far (password resets, phone codes...).
func (a *Auth) Outbox() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.outbox)
}

// IssueActionCode creates an out-of-band code for email and operation, as
// the reset and verification mails would carry.
func (a *Auth) IssueActionCode(email, operation string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issueCodeLocked(email, operation)
}

func (a *Auth) issueCodeLocked(email, operation string) (string, error) {
	email = normalizeEmail(email)
	uid, ok := a.byEmail[email]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUserNotFound, email)
	}
	code := uuid.NewString()
	a.codes[code] = actionCode{operation: operation, uid: uid, email: email}
	a.outbox = append(a.outbox, Message{To: email, Operation: operation, Code: code})
	return code, nil
}

func (a *Auth) ApplyActionCode(ctx context.Context, code string) error {
	a.mu.Lock()
	ac, ok := a.codes[code]
	if !ok || ac.operation != domain.OperationVerifyEmail {
		a.mu.Unlock()
		return domain.ErrInvalidCode
	}
	delete(a.codes, code)
	acc, ok := a.accounts[ac.uid]
	if !ok {
		a.mu.Unlock()
		return domain.ErrUserNotFound
	}
	a.replaceUserLocked(acc, func(u *domain.User) { u.EmailVerified = true })
	a.notifyLocked(false)
	return nil
}

func (a *Auth) CheckActionCode(ctx context.Context, code string) (*domain.ActionCodeInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ac, ok := a.codes[code]
	if !ok {
		return nil, domain.ErrInvalidCode
	}
	return &domain.ActionCodeInfo{Operation: ac.operation, Email: ac.email}, nil
}

func (a *Auth) VerifyPasswordResetCode(ctx context.Context, code string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ac, ok := a.codes[code]
	if !ok || ac.operation != domain.OperationPasswordReset {
		return "", domain.ErrInvalidCode
	}
	return ac.email, nil
}

func (a *Auth) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ac, ok := a.codes[code]
	if !ok || ac.operation != domain.OperationPasswordReset {
		return domain.ErrInvalidCode
	}
	acc, ok := a.accounts[ac.uid]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(a.codes, code)
	acc.passwordHash = hashPassword(ac.uid, newPassword)
	return nil
}

func (a *Auth) SendPasswordResetEmail(ctx context.Context, email string) error {
	_, err := a.IssueActionCode(email, domain.OperationPasswordReset)
	return err
}

func (a *Auth) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*domain.UserCredential, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidPayload)
	}

	a.mu.Lock()
	if _, taken := a.byEmail[email]; taken {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailInUse, email)
	}
	acc := a.createAccountLocked(&domain.User{
		Email:       email,
		ProviderIDs: []string{domain.ProviderPassword},
	})
	acc.passwordHash = hashPassword(acc.user.UID, password)
	cred := &domain.UserCredential{
		User:               acc.user,
		OperationType:      domain.OperationSignIn,
		AdditionalUserInfo: &domain.AdditionalUserInfo{ProviderID: domain.ProviderPassword, IsNewUser: true},
	}
	a.signInLocked(acc.user)
	return cred, nil
}

func (a *Auth) FetchProvidersForEmail(ctx context.Context, email string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	uid, ok := a.byEmail[normalizeEmail(email)]
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(a.accounts[uid].user.ProviderIDs), nil
}

// GetRedirectResult returns the credential of the last redirect sign-in once,
// then nil.
func (a *Auth) GetRedirectResult(ctx context.Context) (*domain.UserCredential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := a.redirect
	a.redirect = nil
	return result, nil
}

func (a *Auth) SignInAndRetrieveDataWithCredential(ctx context.Context, credential domain.Credential) (*domain.UserCredential, error) {
	if credential.ProviderID == domain.ProviderPassword {
		return a.SignInWithEmailAndPassword(ctx, credential.Token, credential.Secret)
	}
	if credential.ProviderID == "" || credential.Token == "" {
		return nil, fmt.Errorf("%w: credential needs a provider and a token", domain.ErrInvalidToken)
	}
	return a.signInFederated(credential.ProviderID, credential.Token, &credential), nil
}

func (a *Auth) SignInWithCredential(ctx context.Context, credential domain.Credential) (*domain.User, error) {
	cred, err := a.SignInAndRetrieveDataWithCredential(ctx, credential)
	if err != nil {
		return nil, err
	}
	return cred.User, nil
}

func (a *Auth) SignInAnonymously(ctx context.Context) (*domain.UserCredential, error) {
	a.mu.Lock()
	acc := a.createAccountLocked(&domain.User{Anonymous: true})
	cred := &domain.UserCredential{
		User:               acc.user,
		OperationType:      domain.OperationSignIn,
		AdditionalUserInfo: &domain.AdditionalUserInfo{ProviderID: domain.ProviderAnonymous, IsNewUser: true},
	}
	a.signInLocked(acc.user)
	return cred, nil
}

// CreateCustomToken mints a token accepted by SignInWithCustomToken.
func (a *Auth) CreateCustomToken(uid string, claims map[string]any) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("%w: uid is required", domain.ErrInvalidToken)
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":    uid,
		"claims": claims,
		"iat":    now.Unix(),
		"exp":    now.Add(a.tokenTTL).Unix(),
	}).SignedString(a.secret)
}

func (a *Auth) SignInWithCustomToken(ctx context.Context, token string) (*domain.UserCredential, error) {
	claims, err := a.parse(token)
	if err != nil {
		return nil, err
	}
	uid, _ := claims["uid"].(string)
	if uid == "" {
		return nil, fmt.Errorf("%w: missing uid claim", domain.ErrInvalidToken)
	}

	a.mu.Lock()
	acc, ok := a.accounts[uid]
	if !ok {
		acc = &account{user: &domain.User{UID: uid, ProviderIDs: []string{domain.ProviderCustom}}}
		a.accounts[uid] = acc
	}
	cred := &domain.UserCredential{
		User:               acc.user,
		OperationType:      domain.OperationSignIn,
		AdditionalUserInfo: &domain.AdditionalUserInfo{ProviderID: domain.ProviderCustom, IsNewUser: !ok},
	}
	a.signInLocked(acc.user)
	return cred, nil
}

func (a *Auth) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*domain.UserCredential, error) {
	email = normalizeEmail(email)
	a.mu.Lock()
	uid, ok := a.byEmail[email]
	if !ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, email)
	}
	acc := a.accounts[uid]
	if acc.passwordHash == "" || acc.passwordHash != hashPassword(uid, password) {
		a.mu.Unlock()
		return nil, domain.ErrWrongPassword
	}
	cred := &domain.UserCredential{
		User:               acc.user,
		OperationType:      domain.OperationSignIn,
		AdditionalUserInfo: &domain.AdditionalUserInfo{ProviderID: domain.ProviderPassword},
	}
	a.signInLocked(acc.user)
	return cred, nil
}

// SignInWithPhoneNumber sends a six digit code to the phone (see Outbox).
func (a *Auth) SignInWithPhoneNumber(ctx context.Context, phoneNumber, verifier string) (*domain.ConfirmationResult, error) {
	if verifier == "" {
		return nil, fmt.Errorf("%w: application verifier is required", domain.ErrInvalidToken)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return nil, err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	id := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.phones[id] = pendingPhone{phoneNumber: phoneNumber, code: code}
	a.outbox = append(a.outbox, Message{To: phoneNumber, Operation: domain.ProviderPhone, Code: code})
	return &domain.ConfirmationResult{VerificationID: id}, nil
}

func (a *Auth) ConfirmPhoneNumber(ctx context.Context, verificationID, code string) (*domain.UserCredential, error) {
	a.mu.Lock()
	pending, ok := a.phones[verificationID]
	if !ok || pending.code != code {
		a.mu.Unlock()
		return nil, domain.ErrInvalidCode
	}
	delete(a.phones, verificationID)

	identity := domain.ProviderPhone + ":" + pending.phoneNumber
	uid, existed := a.byIdentity[identity]
	var acc *account
	if existed {
		acc = a.accounts[uid]
	} else {
		acc = a.createAccountLocked(&domain.User{
			PhoneNumber: pending.phoneNumber,
			ProviderIDs: []string{domain.ProviderPhone},
		})
		a.byIdentity[identity] = acc.user.UID
	}
	cred := &domain.UserCredential{
		User:               acc.user,
		OperationType:      domain.OperationSignIn,
		AdditionalUserInfo: &domain.AdditionalUserInfo{ProviderID: domain.ProviderPhone, IsNewUser: !existed},
	}
	a.signInLocked(acc.user)
	return cred, nil
}

// SignInWithPopup signs in the provider's test identity.
func (a *Auth) SignInWithPopup(ctx context.Context, provider domain.Provider) (*domain.UserCredential, error) {
	if provider.ProviderID == "" {
		return nil, fmt.Errorf("%w: provider id is required", domain.ErrInvalidToken)
	}
	return a.signInFederated(provider.ProviderID, provider.ProviderID, &domain.Credential{ProviderID: provider.ProviderID}), nil
}

// SignInWithRedirect completes the flow immediately and keeps the result for
// GetRedirectResult.
func (a *Auth) SignInWithRedirect(ctx context.Context, provider domain.Provider) error {
	cred, err := a.SignInWithPopup(ctx, provider)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.redirect = cred
	a.mu.Unlock()
	return nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	if a.current == nil {
		a.mu.Unlock()
		return nil
	}
	a.current = nil
	a.notifyLocked(true)
	return nil
}

func (a *Auth) UpdateEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	a.mu.Lock()
	acc, err := a.currentAccountLocked()
	if err != nil {
		a.mu.Unlock()
		return err
	}
	if uid, taken := a.byEmail[email]; taken && uid != acc.user.UID {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrEmailInUse, email)
	}
	delete(a.byEmail, acc.user.Email)
	a.byEmail[email] = acc.user.UID
	a.replaceUserLocked(acc, func(u *domain.User) {
		u.Email = email
		u.EmailVerified = false
	})
	a.notifyLocked(false)
	return nil
}

func (a *Auth) UpdatePassword(ctx context.Context, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, err := a.currentAccountLocked()
	if err != nil {
		return err
	}
	acc.passwordHash = hashPassword(acc.user.UID, password)
	return nil
}

func (a *Auth) UpdateProfile(ctx context.Context, profile domain.Profile) error {
	a.mu.Lock()
	acc, err := a.currentAccountLocked()
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.replaceUserLocked(acc, func(u *domain.User) {
		if profile.DisplayName != nil {
			u.DisplayName = *profile.DisplayName
		}
		if profile.PhotoURL != nil {
			u.PhotoURL = *profile.PhotoURL
		}
	})
	a.notifyLocked(false)
	return nil
}

// IDToken returns a signed HS256 token for the current user.
func (a *Auth) IDToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	u := a.current
	a.mu.Unlock()
	if u == nil {
		return "", domain.ErrNoCurrentUser
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       u.UID,
		"email":     u.Email,
		"anonymous": u.Anonymous,
		"iat":       now.Unix(),
		"exp":       now.Add(a.tokenTTL).Unix(),
	}).SignedString(a.secret)
}

// VerifyIDToken checks a token issued by IDToken and returns its uid.
func (a *Auth) VerifyIDToken(token string) (string, error) {
	claims, err := a.parse(token)
	if err != nil {
		return "", err
	}
	uid, _ := claims["sub"].(string)
	if uid == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return uid, nil
}

func (a *Auth) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return claims, nil
}

func (a *Auth) OnAuthStateChanged(e stream.Emitter[*domain.User]) (stream.Token, error) {
	return a.register(a.stateListeners, e), nil
}

func (a *Auth) OnIDTokenChanged(e stream.Emitter[*domain.User]) (stream.Token, error) {
	return a.register(a.tokenListeners, e), nil
}

func (a *Auth) Unsubscribe(token stream.Token) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.stateListeners, token)
	delete(a.tokenListeners, token)
}

func (a *Auth) register(set map[stream.Token]stream.Emitter[*domain.User], e stream.Emitter[*domain.User]) stream.Token {
	token := stream.NewToken()
	a.mu.Lock()
	set[token] = e
	user := a.current
	a.delivery.run(a.mu.Unlock, []func(){func() { e.Next(user) }})
	return token
}

func (a *Auth) createAccountLocked(u *domain.User) *account {
	u.UID = uuid.NewString()
	acc := &account{user: u}
	a.accounts[u.UID] = acc
	if u.Email != "" {
		a.byEmail[u.Email] = u.UID
	}
	return acc
}

func (a *Auth) signInFederated(providerID, subject string, credential *domain.Credential) *domain.UserCredential {
	identity := providerID + ":" + subject
	a.mu.Lock()
	uid, existed := a.byIdentity[identity]
	var acc *account
	if existed {
		acc = a.accounts[uid]
	} else {
		acc = a.createAccountLocked(&domain.User{ProviderIDs: []string{providerID}, EmailVerified: true})
		a.byIdentity[identity] = acc.user.UID
	}
	cred := &domain.UserCredential{
		User:               acc.user,
		Credential:         credential,
		OperationType:      domain.OperationSignIn,
		AdditionalUserInfo: &domain.AdditionalUserInfo{ProviderID: providerID, IsNewUser: !existed},
	}
	a.signInLocked(acc.user)
	return cred
}

func (a *Auth) currentAccountLocked() (*account, error) {
	if a.current == nil {
		return nil, domain.ErrNoCurrentUser
	}
	acc, ok := a.accounts[a.current.UID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return acc, nil
}

// replaceUserLocked swaps in a modified copy of the account's user.
func (a *Auth) replaceUserLocked(acc *account, mutate func(*domain.User)) {
	wasCurrent := a.current == acc.user
	acc.user = cloneUser(acc.user, mutate)
	if wasCurrent {
		a.current = acc.user
	}
}

// signInLocked makes u current and notifies listeners. It releases a.mu.
func (a *Auth) signInLocked(u *domain.User) {
	stateChanged := a.current != u
	a.current = u
	a.notifyLocked(stateChanged)
}

// notifyLocked delivers the current user to token listeners and, when the
// signed-in state changed, to state listeners. It releases a.mu.
func (a *Auth) notifyLocked(stateChanged bool) {
	user := a.current
	var calls []func()
	if stateChanged {
		for _, e := range a.stateListeners {
			calls = append(calls, func() { e.Next(user) })
		}
	}
	for _, e := range a.tokenListeners {
		calls = append(calls, func() { e.Next(user) })
	}
	a.delivery.run(a.mu.Unlock, calls)
}
