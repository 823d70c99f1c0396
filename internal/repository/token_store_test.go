package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang-autotrade/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))

	_, err := store.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)

	token := &dto.AccessToken{AccessToken: "abc", ExpiresAt: 1700000000}
	require.NoError(t, store.Save(token))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestCheckToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	buffer := 10 * time.Minute

	tests := []struct {
		name    string
		token   *dto.AccessToken
		wantErr bool
	}{
		{name: "nil", token: nil, wantErr: true},
		{name: "empty", token: &dto.AccessToken{ExpiresAt: now.Add(time.Hour).Unix()}, wantErr: true},
		{name: "valid", token: &dto.AccessToken{AccessToken: "x", ExpiresAt: now.Add(time.Hour).Unix()}},
		{name: "inside refresh buffer", token: &dto.AccessToken{AccessToken: "x", ExpiresAt: now.Add(5 * time.Minute).Unix()}, wantErr: true},
		{name: "expired", token: &dto.AccessToken{AccessToken: "x", ExpiresAt: now.Add(-time.Minute).Unix()}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkToken(tt.token, now, buffer)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTokenExpired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
