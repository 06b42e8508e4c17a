package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты для hashPassword и checkPasswordHash

func TestHashAndCheckPassword(t *testing.T) {
	password := "mysecretpassword1"
	pepper := "test-pepper-for-unit-tests"

	hashedPassword, err := hashPassword(password, pepper)
	require.NoError(t, err, "hashPassword should not return an error")
	require.NotEmpty(t, hashedPassword, "hashPassword should return a non-empty string")
	assert.NotEqual(t, password, hashedPassword, "Hashed password should not be equal to the original password")

	assert.True(t, checkPasswordHash(password, hashedPassword, pepper),
		"checkPasswordHash should return true for correct password and pepper")

	assert.False(t, checkPasswordHash("wrongpassword", hashedPassword, pepper),
		"checkPasswordHash should return false for incorrect password")

	// HMAC с другим pepper дает другой вход для bcrypt.
	assert.False(t, checkPasswordHash(password, hashedPassword, "another-pepper"),
		"checkPasswordHash should return false for incorrect pepper")

	assert.False(t, checkPasswordHash(password, "not-a-bcrypt-hash", pepper),
		"checkPasswordHash should return false for invalid hash format")
}

func TestApplyPepperIsDeterministic(t *testing.T) {
	pepper := "test-pepper"
	first := applyPepper("password123", pepper)
	second := applyPepper("password123", pepper)
	assert.Equal(t, first, second)

	other := applyPepper("password124", pepper)
	assert.NotEqual(t, first, other)
}
