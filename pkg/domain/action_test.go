package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_NamesRoundTrip(t *testing.T) {
	kinds := domain.Kinds()
	require.Len(t, kinds, 28)
	assert.Equal(t, domain.KindApplyActionCode, kinds[0])
	assert.Equal(t, domain.KindVerifyPasswordResetCode, kinds[len(kinds)-1])

	for _, k := range kinds {
		parsed, err := domain.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}

func TestKind_Parse(t *testing.T) {
	k, err := domain.ParseKind("signout")
	require.NoError(t, err)
	assert.Equal(t, domain.KindSignOut, k)

	_, err = domain.ParseKind("DropDatabase")
	assert.ErrorIs(t, err, domain.ErrUnknownKind)

	assert.False(t, domain.Kind(99).Valid())
	assert.Equal(t, "Kind(99)", domain.Kind(99).String())
}

func TestKind_JSON(t *testing.T) {
	b, err := json.Marshal(domain.Ack{Kind: domain.KindSet, Path: "/a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"Set","path":"/a"}`, string(b))

	var ack domain.Ack
	require.NoError(t, json.Unmarshal(b, &ack))
	assert.Equal(t, domain.KindSet, ack.Kind)
}

func TestAction_AsReturnsCopy(t *testing.T) {
	base := domain.Ref("/a").Set(5)
	tagged := base.As("op1")

	assert.Empty(t, base.Key(), "original is never mutated")
	assert.Equal(t, "op1", tagged.Key())
	assert.Equal(t, base.Kind(), tagged.Kind())
	assert.Equal(t, base.Payload(), tagged.Payload())

	retagged := tagged.As("op2")
	assert.Equal(t, "op1", tagged.Key())
	assert.Equal(t, "op2", retagged.Key())
}

func TestAction_Builders(t *testing.T) {
	tests := []struct {
		name    string
		action  domain.Action
		kind    domain.Kind
		payload domain.Payload
	}{
		{"sign out", domain.SignOut(), domain.KindSignOut, domain.NoPayload{}},
		{"apply code", domain.ApplyActionCode("c1"), domain.KindApplyActionCode, domain.CodePayload{Code: "c1"}},
		{"reset", domain.ConfirmPasswordReset("c1", "pw"), domain.KindConfirmPasswordReset,
			domain.PasswordResetPayload{Code: "c1", NewPassword: "pw"}},
		{"push", domain.Ref("/list").Push("x"), domain.KindPush, domain.RefValuePayload{Path: "/list", Value: "x"}},
		{"remove", domain.Ref("/a").Remove(), domain.KindRemove, domain.RefPayload{Path: "/a"}},
		{"priority", domain.Ref("/a").SetPriority(1.5), domain.KindSetPriority,
			domain.RefPriorityPayload{Path: "/a", Priority: 1.5}},
		{"update", domain.Ref("/a").Update(map[string]any{"b": 1}), domain.KindUpdate,
			domain.UpdatePayload{Path: "/a", Values: map[string]any{"b": 1}}},
		{"offline", domain.GoOffline(), domain.KindGoOffline, domain.NoPayload{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.action.Kind())
			assert.Equal(t, tt.payload, tt.action.Payload())
		})
	}
}

func TestNewAction_NilPayload(t *testing.T) {
	a := domain.NewAction(domain.KindSignInAnonymously, nil)
	assert.Equal(t, domain.NoPayload{}, a.Payload())
}

func TestNewKey_Unique(t *testing.T) {
	assert.NotEqual(t, domain.NewKey(), domain.NewKey())
}
