package domain

import "errors"

// Command errors.
var (
	// ErrUnknownKind is returned when a kind name or value is outside the closed set.
	ErrUnknownKind = errors.New("unknown action kind")

	// ErrUnsupportedKind is returned when a kind cannot be built from loose input
	// (e.g. Transaction, whose payload is a function).
	ErrUnsupportedKind = errors.New("action kind cannot be decoded")

	// ErrInvalidPayload is returned when an action's payload does not match its kind.
	ErrInvalidPayload = errors.New("invalid action payload")
)

// Auth errors.
var (
	ErrNoCurrentUser = errors.New("no user is signed in")
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailInUse    = errors.New("email already in use")
	ErrWrongPassword = errors.New("wrong password")
	ErrInvalidCode   = errors.New("invalid or expired action code")
	ErrInvalidToken  = errors.New("invalid token")
)

// Database errors.
var (
	// ErrOffline is returned by writes while the database is offline.
	ErrOffline = errors.New("database is offline")

	ErrUnknownEvent = errors.New("unknown event type")

	// ErrInvalidPath is returned for paths with empty or forbidden key segments.
	ErrInvalidPath = errors.New("invalid database path")

	// ErrForeignURL is returned when a reference URL does not belong to the configured database.
	ErrForeignURL = errors.New("url does not belong to this database")

	ErrTransactionAborted = errors.New("transaction aborted")
)
