package service

import (
	"errors"
	"testing"

	"payme-wallet/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errInsufficient() error {
	return apperror.ErrInsufficientFunds()
}

func errChallengeUsed() error {
	return apperror.ErrChallengeAlreadyUsed()
}

// assertAppError checks that err is an *apperror.AppError with the given code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
