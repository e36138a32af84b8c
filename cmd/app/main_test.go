package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igormartsekha/saas-starter-kit/internal/config"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/screens"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

func TestRPCErrorShowsHTTPStatus(t *testing.T) {
	err := &rpcRespError{Code: 40400, Message: "Team not found"}
	assert.Equal(t, "rpc error (404): Team not found", err.Error())

	err = &rpcRespError{Code: -32601, Message: "method not found"}
	assert.Equal(t, "rpc error (-32601): method not found", err.Error())
}

func TestScreenResult(t *testing.T) {
	require.NoError(t, screenResult(nil))
	require.NoError(t, screenResult(screens.ErrCanceled))

	failure := &mutation.Failure{Message: "Email change is not allowed.", StatusCode: 400}
	assert.ErrorIs(t, screenResult(fmt.Errorf("update: %w", failure)), errReported)
	assert.ErrorIs(t, screenResult(validation.ErrAvatarTooLarge), errReported)

	other := fmt.Errorf("boom")
	assert.Equal(t, other, screenResult(other))
}

func TestServiceSettingsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Features.BlockedEmailDomains = []string{"gmail.com"}

	s := serviceSettings(cfg)
	assert.Equal(t, cfg.SessionTTL(), s.SessionTTL)
	assert.Equal(t, cfg.InvitationTTL(), s.InvitationTTL)
	assert.Equal(t, cfg.AllowEmailChange(), s.AllowEmailChange)
	assert.Equal(t, cfg.AllowAPIKeys(), s.AllowAPIKeys)
	assert.Equal(t, []string{"gmail.com"}, s.BlockedEmailDomains)
}

func TestUintToString(t *testing.T) {
	assert.Equal(t, "42", uintToString(42))
	assert.Equal(t, "-", formatMaybeUint(nil))
}
