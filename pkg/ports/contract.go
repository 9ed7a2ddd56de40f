package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractTimeout = 2 * time.Second

// recorder is an Emitter buffering everything it receives.
type recorder[T any] struct {
	values chan T
	errs   chan error
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{values: make(chan T, 256), errs: make(chan error, 8)}
}

func (r *recorder[T]) Next(v T)        { r.values <- v }
func (r *recorder[T]) Error(err error) { r.errs <- err }
func (r *recorder[T]) Complete()       {}

func (r *recorder[T]) next(t *testing.T) T {
	t.Helper()
	select {
	case v := <-r.values:
		return v
	case err := <-r.errs:
		t.Fatalf("listener failed: %v", err)
	case <-time.After(contractTimeout):
		t.Fatal("timed out waiting for notification")
	}
	var zero T
	return zero
}

func (r *recorder[T]) none(t *testing.T) {
	t.Helper()
	select {
	case v := <-r.values:
		t.Fatalf("unexpected notification: %+v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

// RunBackendContract runs the auth and database suites against b.
func RunBackendContract(t *testing.T, b Backend) {
	t.Run("Auth", func(t *testing.T) { RunAuthContract(t, b.Auth()) })
	t.Run("Database", func(t *testing.T) { RunDatabaseContract(t, b.Database()) })
}

// RunAuthContract runs a suite of tests verifying that an Auth
// implementation adheres to the interface contract.
func RunAuthContract(t *testing.T, auth Auth) {
	ctx := context.Background()
	email := domain.NewKey() + "@example.com"
	require.NoError(t, auth.SignOut(ctx))

	t.Run("State listener follows sign in and out", func(t *testing.T) {
		rec := newRecorder[*domain.User]()
		token, err := auth.OnAuthStateChanged(rec)
		require.NoError(t, err)
		defer auth.Unsubscribe(token)

		assert.Nil(t, rec.next(t), "current state is delivered on registration")

		cred, err := auth.CreateUserWithEmailAndPassword(ctx, email, "s3cret")
		require.NoError(t, err)
		require.NotNil(t, cred.User)
		assert.Equal(t, email, cred.User.Email)

		user := rec.next(t)
		require.NotNil(t, user)
		assert.Equal(t, cred.User.UID, user.UID)
		assert.Same(t, auth.CurrentUser(), user)

		require.NoError(t, auth.SignOut(ctx))
		assert.Nil(t, rec.next(t))
		assert.Nil(t, auth.CurrentUser())
	})

	t.Run("Duplicate email", func(t *testing.T) {
		_, err := auth.CreateUserWithEmailAndPassword(ctx, email, "other")
		assert.ErrorIs(t, err, domain.ErrEmailInUse)
		require.NoError(t, auth.SignOut(ctx))
	})

	t.Run("Email sign in", func(t *testing.T) {
		_, err := auth.SignInWithEmailAndPassword(ctx, email, "wrong")
		assert.ErrorIs(t, err, domain.ErrWrongPassword)

		_, err = auth.SignInWithEmailAndPassword(ctx, "nobody-"+email, "s3cret")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		cred, err := auth.SignInWithEmailAndPassword(ctx, email, "s3cret")
		require.NoError(t, err)
		assert.Equal(t, domain.OperationSignIn, cred.OperationType)

		token, err := auth.IDToken(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("Profile update replaces the user snapshot", func(t *testing.T) {
		before := auth.CurrentUser()
		require.NotNil(t, before)

		name := "Ada"
		require.NoError(t, auth.UpdateProfile(ctx, domain.Profile{DisplayName: &name}))

		after := auth.CurrentUser()
		require.NotNil(t, after)
		assert.NotSame(t, before, after)
		assert.Equal(t, "Ada", after.DisplayName)
		assert.Empty(t, before.DisplayName, "old snapshot is never mutated")
	})

	t.Run("Token listener", func(t *testing.T) {
		rec := newRecorder[*domain.User]()
		token, err := auth.OnIDTokenChanged(rec)
		require.NoError(t, err)
		defer auth.Unsubscribe(token)

		assert.Same(t, auth.CurrentUser(), rec.next(t))

		require.NoError(t, auth.SignOut(ctx))
		assert.Nil(t, rec.next(t))
	})

	t.Run("Unsubscribe stops notifications", func(t *testing.T) {
		rec := newRecorder[*domain.User]()
		token, err := auth.OnAuthStateChanged(rec)
		require.NoError(t, err)
		rec.next(t)

		auth.Unsubscribe(token)
		_, err = auth.SignInAnonymously(ctx)
		require.NoError(t, err)
		rec.none(t)
		require.NoError(t, auth.SignOut(ctx))
	})

	t.Run("Signed out calls", func(t *testing.T) {
		require.NoError(t, auth.SignOut(ctx))
		assert.ErrorIs(t, auth.UpdateEmail(ctx, "x@example.com"), domain.ErrNoCurrentUser)
		assert.ErrorIs(t, auth.UpdatePassword(ctx, "x"), domain.ErrNoCurrentUser)
		_, err := auth.IDToken(ctx)
		assert.ErrorIs(t, err, domain.ErrNoCurrentUser)
	})

	t.Run("Providers for email", func(t *testing.T) {
		providers, err := auth.FetchProvidersForEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, []string{domain.ProviderPassword}, providers)

		providers, err = auth.FetchProvidersForEmail(ctx, "unknown-"+email)
		require.NoError(t, err)
		assert.Empty(t, providers)
	})

	t.Run("Anonymous sign in", func(t *testing.T) {
		cred, err := auth.SignInAnonymously(ctx)
		require.NoError(t, err)
		assert.True(t, cred.User.Anonymous)
		require.NoError(t, auth.SignOut(ctx))
	})
}

// RunDatabaseContract runs a suite of tests verifying that a Database
// implementation adheres to the interface contract. All writes happen below
// a unique path so the suite can share a database with other data.
func RunDatabaseContract(t *testing.T, db Database) {
	ctx := context.Background()
	base := "/contract/" + domain.NewKey()
	ref := func(p string) Reference { return db.Ref(base + "/" + p) }

	t.Run("Set and Get", func(t *testing.T) {
		r := ref("set")
		require.NoError(t, r.Set(ctx, map[string]any{"n": 1, "s": "x"}))

		snap, err := r.Get(ctx)
		require.NoError(t, err)
		assert.True(t, snap.Exists)
		assert.Equal(t, "set", snap.Key)
		assert.Equal(t, map[string]any{"n": 1.0, "s": "x"}, snap.Value)

		missing, err := ref("missing").Get(ctx)
		require.NoError(t, err)
		assert.False(t, missing.Exists)
		assert.Nil(t, missing.Value)
	})

	t.Run("Child references", func(t *testing.T) {
		r := db.Ref(base).Child("x/y")
		assert.Equal(t, base+"/x/y", r.Path())
		assert.Equal(t, "y", r.Key())
		assert.Equal(t, "", db.Ref("").Key())
	})

	t.Run("Value listener", func(t *testing.T) {
		r := ref("value")
		rec := newRecorder[*domain.Snapshot]()
		token, err := r.On(domain.EventValue, rec)
		require.NoError(t, err)
		rec.none(t)

		require.NoError(t, r.Set(ctx, 5))
		assert.Equal(t, 5.0, rec.next(t).Value)

		require.NoError(t, ref("elsewhere").Set(ctx, 1))
		rec.none(t)

		require.NoError(t, r.Set(ctx, 6))
		assert.Equal(t, 6.0, rec.next(t).Value)

		require.NoError(t, r.Off(domain.EventValue, token))
		require.NoError(t, r.Set(ctx, 7))
		rec.none(t)
	})

	t.Run("Value listener gets current data", func(t *testing.T) {
		r := ref("current")
		require.NoError(t, r.Set(ctx, "now"))

		rec := newRecorder[*domain.Snapshot]()
		token, err := r.On(domain.EventValue, rec)
		require.NoError(t, err)
		defer func() { _ = r.Off(domain.EventValue, token) }()

		assert.Equal(t, "now", rec.next(t).Value)
	})

	t.Run("Child events", func(t *testing.T) {
		r := ref("children")
		require.NoError(t, r.Set(ctx, map[string]any{"a": 1, "b": 2}))

		added := newRecorder[*domain.Snapshot]()
		addedToken, err := r.On(domain.EventChildAdded, added)
		require.NoError(t, err)
		defer func() { _ = r.Off(domain.EventChildAdded, addedToken) }()

		changed := newRecorder[*domain.Snapshot]()
		changedToken, err := r.On(domain.EventChildChanged, changed)
		require.NoError(t, err)
		defer func() { _ = r.Off(domain.EventChildChanged, changedToken) }()

		removed := newRecorder[*domain.Snapshot]()
		removedToken, err := r.On(domain.EventChildRemoved, removed)
		require.NoError(t, err)
		defer func() { _ = r.Off(domain.EventChildRemoved, removedToken) }()

		assert.Equal(t, "a", added.next(t).Key)
		assert.Equal(t, "b", added.next(t).Key)

		require.NoError(t, r.Child("c").Set(ctx, 3))
		assert.Equal(t, "c", added.next(t).Key)

		require.NoError(t, r.Child("a").Set(ctx, 10))
		snap := changed.next(t)
		assert.Equal(t, "a", snap.Key)
		assert.Equal(t, 10.0, snap.Value)

		require.NoError(t, r.Child("b").Remove(ctx))
		snap = removed.next(t)
		assert.Equal(t, "b", snap.Key)
		assert.Equal(t, 2.0, snap.Value)
	})

	t.Run("Push keys are time ordered", func(t *testing.T) {
		r := ref("list")
		var keys []string
		for i := 0; i < 3; i++ {
			child, err := r.Push(ctx, i)
			require.NoError(t, err)
			keys = append(keys, child.Key())
		}
		assert.IsIncreasing(t, keys)

		snap, err := r.Get(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Value, 3)
	})

	t.Run("Update", func(t *testing.T) {
		r := ref("update")
		require.NoError(t, r.Set(ctx, map[string]any{"keep": true, "drop": 1, "nested": map[string]any{"x": 1, "y": 2}}))
		require.NoError(t, r.Update(ctx, map[string]any{"drop": nil, "nested/x": 5, "new": "n"}))

		snap, err := r.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"keep":   true,
			"nested": map[string]any{"x": 5.0, "y": 2.0},
			"new":    "n",
		}, snap.Value)
	})

	t.Run("Priority", func(t *testing.T) {
		r := ref("prio")
		require.NoError(t, r.SetWithPriority(ctx, "v", 3))
		snap, err := r.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v", snap.Value)
		assert.Equal(t, 3.0, snap.Priority)

		require.NoError(t, r.SetPriority(ctx, "top"))
		snap, err = r.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "top", snap.Priority)
	})

	t.Run("Transaction", func(t *testing.T) {
		r := ref("counter")
		require.NoError(t, r.Set(ctx, 1))

		result, err := r.Transaction(ctx, func(current any) (any, bool) {
			n, _ := current.(float64)
			return n + 1, true
		})
		require.NoError(t, err)
		assert.True(t, result.Committed)
		require.NotNil(t, result.Snapshot)
		assert.Equal(t, 2.0, result.Snapshot.Value)

		result, err = r.Transaction(ctx, func(current any) (any, bool) {
			return nil, false
		})
		require.NoError(t, err)
		assert.False(t, result.Committed)
		assert.Equal(t, 2.0, result.Snapshot.Value)
	})

	t.Run("Offline writes fail", func(t *testing.T) {
		r := ref("offline")
		require.NoError(t, db.GoOffline(ctx))
		assert.ErrorIs(t, r.Set(ctx, 1), domain.ErrOffline)

		require.NoError(t, db.GoOnline(ctx))
		assert.NoError(t, r.Set(ctx, 1))
	})

	t.Run("Off with unknown token", func(t *testing.T) {
		assert.NoError(t, ref("x").Off(domain.EventValue, stream.NewToken()))
	})

	t.Run("Unknown event", func(t *testing.T) {
		_, err := ref("x").On(domain.EventType("child_exploded"), newRecorder[*domain.Snapshot]())
		assert.ErrorIs(t, err, domain.ErrUnknownEvent)
	})
}
