package msauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialValidAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name string
		cred *Credential
		want bool
	}{
		{
			name: "nil credential",
			cred: nil,
			want: false,
		},
		{
			name: "missing expires_at is never valid",
			cred: &Credential{AccessToken: "tok", ExpiresIn: 3600},
			want: false,
		},
		{
			name: "future expiry",
			cred: &Credential{AccessToken: "tok", ExpiresAt: now.Unix() + 60},
			want: true,
		},
		{
			name: "past expiry",
			cred: &Credential{AccessToken: "tok", ExpiresAt: now.Unix() - 60},
			want: false,
		},
		{
			name: "expiry exactly now",
			cred: &Credential{AccessToken: "tok", ExpiresAt: now.Unix()},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.ValidAt(now))
		})
	}
}
