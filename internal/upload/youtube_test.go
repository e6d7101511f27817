package upload

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/mwarren/clipforge/internal/config"
)

func TestNewYouTubeUploaderRequiresCredentialFiles(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err := NewYouTubeUploader(context.Background(), logger, config.UploadConfig{})
	assert.Error(t, err)

	_, err = NewYouTubeUploader(context.Background(), logger, config.UploadConfig{
		ClientSecretsFile: "secrets.json",
	})
	assert.Error(t, err)
}

func TestNewYouTubeUploaderMissingSecretsFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err := NewYouTubeUploader(context.Background(), logger, config.UploadConfig{
		ClientSecretsFile: filepath.Join(t.TempDir(), "nope.json"),
		TokenFile:         filepath.Join(t.TempDir(), "token.json"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client secrets")
}

func TestLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	token, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, want.RefreshToken, token.RefreshToken)
	assert.Equal(t, want.AccessToken, token.AccessToken)
}

func TestLoadTokenInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := loadToken(path)
	assert.Error(t, err)
}

func TestPrivacyOrDefault(t *testing.T) {
	assert.Equal(t, "public", privacyOrDefault("public"))
	assert.Equal(t, "private", privacyOrDefault("private"))
	assert.Equal(t, "unlisted", privacyOrDefault(""))
	assert.Equal(t, "unlisted", privacyOrDefault("sneaky"))
}
