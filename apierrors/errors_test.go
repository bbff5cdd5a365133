package apierrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	v := apierrors.NewValidationError()
	v.Add("email", "Invalid email address")

	tests := []struct {
		name string
		err  error
		want apierrors.Kind
	}{
		{"nil", nil, apierrors.KindUnknown},
		{"plain", errors.New("boom"), apierrors.KindUnknown},
		{"validation", v, apierrors.KindValidation},
		{"network", &apierrors.NetworkError{Cause: errors.New("dial tcp")}, apierrors.KindNetwork},
		{"server", &apierrors.ServerError{Status: 500}, apierrors.KindServer},
		{"authorization", &apierrors.AuthorizationError{Status: 403}, apierrors.KindAuthorization},
		{"wrapped server", fmt.Errorf("login: %w", &apierrors.ServerError{Status: 409}), apierrors.KindServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, apierrors.KindOf(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	v := apierrors.NewValidationError()
	require.True(t, v.Empty())

	v.Add("password", "Password must be at least 6 characters")
	v.Add("email", "Invalid email address")

	require.False(t, v.Empty())
	require.Equal(t, []string{"Invalid email address", "Password must be at least 6 characters"}, v.Messages())
	require.Contains(t, v.Error(), "Invalid email address, Password must be at least 6 characters")
}

func TestNetworkErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &apierrors.NetworkError{Cause: cause}
	require.ErrorIs(t, err, cause)
}

func TestUserMessage(t *testing.T) {
	v := apierrors.NewValidationError()
	v.Add("email", "Invalid email address")

	require.Equal(t, "Validation error during login: Invalid email address", apierrors.UserMessage("login", v))
	require.Equal(t, "Login failed: could not reach the server", apierrors.UserMessage("login", &apierrors.NetworkError{Cause: errors.New("x")}))
	require.Equal(t, "Registration failed: server error 409: email taken",
		apierrors.UserMessage("registration", &apierrors.ServerError{Status: 409, Message: "email taken"}))
	require.Empty(t, apierrors.UserMessage("login", nil))
}

func TestIsAuthorizationStatus(t *testing.T) {
	require.True(t, apierrors.IsAuthorizationStatus(401))
	require.True(t, apierrors.IsAuthorizationStatus(403))
	require.False(t, apierrors.IsAuthorizationStatus(404))
	require.False(t, apierrors.IsAuthorizationStatus(500))
}
