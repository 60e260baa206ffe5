package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskbot/internal/identity"
)

func TestPolicy_Allowed(t *testing.T) {
	p := NewPolicy()

	tests := []struct {
		email string
		want  bool
	}{
		{"ann@microsoft.com", true},
		{"Ann@Microsoft.COM", true},
		{"bob@skype.com", true},
		{"eve@evil.com", false},
		{"eve@notmicrosoft.com", false},
		{"eve@microsoft.com.evil.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allowed(&identity.Profile{EmailAddress: tt.email}))
		})
	}
	assert.False(t, p.Allowed(nil))
}

func TestPolicy_SetDomains(t *testing.T) {
	p := NewPolicy(" @Example.org ", "")
	assert.Equal(t, []string{"example.org"}, p.Domains())
	assert.True(t, p.Allowed(&identity.Profile{EmailAddress: "a@example.org"}))
	assert.False(t, p.Allowed(&identity.Profile{EmailAddress: "a@microsoft.com"}))

	p.SetDomains(nil)
	assert.Equal(t, []string{"microsoft.com", "skype.com"}, p.Domains())
}

func TestPolicy_Check(t *testing.T) {
	p := NewPolicy("example.org")
	profile := &identity.Profile{EmailAddress: "eve@evil.com", DisplayName: "Eve"}

	err := p.Check(profile)
	var denied *PolicyDeniedError
	assert.True(t, errors.As(err, &denied))
	assert.Same(t, profile, denied.Profile)
	assert.Equal(t, "profile eve@evil.com Eve is not allowed", err.Error())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Authentication timeout", "Authentication timeout"},
		{"quotes survive", `oauth2: "invalid_grant"`, `oauth2: "invalid_grant"`},
		{"tags stripped", "bad <b>request</b>", "bad request"},
		{"script removed", "<script>alert(1)</script>denied", "denied"},
		{"escaped markup", "&lt;img src=x onerror=alert(1)&gt;oops", "oops"},
		{"comparison kept", "a < b", "a < b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
