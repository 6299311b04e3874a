package domain

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/restgate/internal/errors"
)

func TestParseAccessMask(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected AccessMask
		wantErr  bool
	}{
		{
			name:  "orders style 660",
			input: "660",
			expected: AccessMask{
				Owner:         Permission{Read: true, Write: true},
				Authenticated: Permission{Read: true, Write: true},
			},
		},
		{
			name:  "public read 444",
			input: "444",
			expected: AccessMask{
				Owner:         Permission{Read: true},
				Authenticated: Permission{Read: true},
				Anonymous:     Permission{Read: true},
			},
		},
		{
			name:     "owner only 700",
			input:    "700",
			expected: AccessMask{Owner: Permission{Read: true, Write: true, Delete: true}},
		},
		{name: "nothing", input: "000", expected: AccessMask{}},
		{name: "digit above seven", input: "680", wantErr: true},
		{name: "non digit", input: "6a0", wantErr: true},
		{name: "too short", input: "66", wantErr: true},
		{name: "too long", input: "6600", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask, err := ParseAccessMask(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, ErrInvalidMask))
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mask)
			assert.Equal(t, tt.input, mask.String())
		})
	}
}

func TestMustParseAccessMask_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseAccessMask("999") })
	assert.NotPanics(t, func() { MustParseAccessMask("600") })
}

func TestPermission_DigitRoundTrip(t *testing.T) {
	for d := 0; d <= 7; d++ {
		p, err := PermissionFromDigit(d)
		require.NoError(t, err)
		assert.Equal(t, d, p.Digit())
	}

	_, err := PermissionFromDigit(8)
	assert.Error(t, err)
}

func TestAccessMask_EffectiveIsCumulative(t *testing.T) {
	mask := MustParseAccessMask("124")

	assert.Equal(t, Permission{Read: true}, mask.Effective(ActorAnonymous))
	assert.Equal(t, Permission{Read: true, Write: true}, mask.Effective(ActorAuthenticated))
	assert.Equal(t, Permission{Read: true, Write: true, Delete: true}, mask.Effective(ActorOwner))
}

func TestVerbFromMethod(t *testing.T) {
	tests := []struct {
		method     string
		verb       Verb
		capability Capability
		ok         bool
	}{
		{http.MethodPost, VerbCreate, WriteCapability, true},
		{http.MethodGet, VerbRead, ReadCapability, true},
		{http.MethodHead, VerbRead, ReadCapability, true},
		{http.MethodPut, VerbUpdate, WriteCapability, true},
		{http.MethodPatch, VerbUpdate, WriteCapability, true},
		{http.MethodDelete, VerbDelete, DeleteCapability, true},
		{http.MethodTrace, "", "", false},
		{"BREW", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			verb, ok := VerbFromMethod(tt.method)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.verb, verb)
			assert.Equal(t, tt.capability, verb.Capability())
		})
	}
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())
	assert.ErrorIs(t, Decision{Reason: ReasonUnsupportedVerb}.Err(), apperrors.ErrMethodNotAllowed)
	assert.ErrorIs(t, Decision{Reason: ReasonUnknownCollection}.Err(), apperrors.ErrNotFound)
	assert.ErrorIs(t, Decision{Reason: ReasonUnauthenticated}.Err(), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, Decision{Reason: ReasonNoMask}.Err(), apperrors.ErrForbidden)
	assert.ErrorIs(t, Decision{Reason: ReasonForbidden}.Err(), apperrors.ErrForbidden)
	assert.ErrorIs(t, Decision{Reason: ReasonOwnerReassignment}.Err(), apperrors.ErrForbidden)
}
