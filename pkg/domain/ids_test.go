package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	dErrors "opsgate/pkg/domerrors"
)

func TestParseAdminID(t *testing.T) {
	t.Run("round trips a valid uuid", func(t *testing.T) {
		minted := NewAdminID()
		parsed, err := ParseAdminID(minted.String())
		assert.NoError(t, err)
		assert.Equal(t, minted, parsed)
	})

	t.Run("rejects the empty string", func(t *testing.T) {
		_, err := ParseAdminID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ParseAdminID("not-a-uuid")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects the nil uuid", func(t *testing.T) {
		_, err := ParseAdminID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, AdminID{}.IsNil())
	assert.False(t, NewAdminID().IsNil())
	assert.True(t, SessionID{}.IsNil())
	assert.False(t, NewSessionID().IsNil())
}

func TestTypedIDsAreDistinct(t *testing.T) {
	// Same underlying uuid, different types: conversions must be explicit.
	raw := uuid.New()
	adminID := AdminID(raw)
	orgID := OrgID(raw)
	assert.Equal(t, adminID.String(), orgID.String())
}
