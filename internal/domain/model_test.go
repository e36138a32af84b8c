package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvitationAllowsEmail(t *testing.T) {
	open := Invitation{}
	assert.True(t, open.AllowsEmail("anyone@gmail.com"))

	limited := Invitation{AllowedDomains: []string{"acme.com", "acme.io"}}
	assert.True(t, limited.AllowsEmail("bob@ACME.com"))
	assert.True(t, limited.AllowsEmail("eve@acme.io"))
	assert.False(t, limited.AllowsEmail("bob@sub.acme.com"))
	assert.False(t, limited.AllowsEmail("not-an-email"))
}

func TestInvitationURL(t *testing.T) {
	inv := Invitation{Token: "abc-123"}
	assert.Equal(t, "http://localhost:4002/login?invite=abc-123", inv.URL("http://localhost:4002/"))
}
