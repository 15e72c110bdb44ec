package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorErrorIncludesInternal(t *testing.T) {
	base := New("MEMBERSHIP_CONFLICT", "Membership conflict", http.StatusBadRequest)
	require.Equal(t, "Membership conflict", base.Error())

	wrapped := base.WithInternal(errors.New("unique index violated"))
	require.Contains(t, wrapped.Error(), "unique index violated")
	require.Equal(t, base.Code, wrapped.Code)
	// Original sentinel stays untouched.
	require.Nil(t, base.Internal)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrForbidden)
	require.Equal(t, "FORBIDDEN", appErr.Code)
	require.Equal(t, http.StatusForbidden, appErr.StatusCode)

	generic := FromError(errors.New("connection refused"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.EqualError(t, generic.Unwrap(), "connection refused")
}

func TestErrorsIsMatchesSentinels(t *testing.T) {
	err := ErrNotFound.WithInternal(errors.New("record not found"))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, ErrNotFound.Code, appErr.Code)
}
