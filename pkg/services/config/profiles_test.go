package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfiles(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), ".sitewardencfg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRegistry_GetProfile(t *testing.T) {
	path := writeProfiles(t, `
[DEFAULT]
server_url = https://bi.example.com
token_name = warden
token_secret = s3cret
site = alpha

[staging]
server_url = https://staging.example.com
token_name = warden-stg
token_secret = stg-secret
`)

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	ctx := context.Background()

	profile, err := registry.GetProfile(ctx, "DEFAULT")
	require.NoError(t, err)
	assert.Equal(t, "https://bi.example.com", profile.ServerURL)
	assert.Equal(t, "warden", profile.TokenName)
	assert.Equal(t, "s3cret", profile.TokenSecret)
	assert.Equal(t, "alpha", profile.SiteScope)

	staging, err := registry.GetProfile(ctx, "staging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", staging.ServerURL)
	assert.Empty(t, staging.SiteScope)
}

func TestRegistry_MissingProfile(t *testing.T) {
	path := writeProfiles(t, `
[DEFAULT]
server_url = https://bi.example.com
token_name = warden
token_secret = s3cret
`)

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	_, err = registry.GetProfile(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRegistry_IncompleteProfile(t *testing.T) {
	path := writeProfiles(t, `
[DEFAULT]
server_url = https://bi.example.com
token_name = warden
`)

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	_, err = registry.GetProfile(context.Background(), "DEFAULT")
	assert.ErrorContains(t, err, "token_name and token_secret")
}

func TestRegistry_EnvOverrides(t *testing.T) {
	path := writeProfiles(t, `
[DEFAULT]
server_url = https://bi.example.com
token_name = warden
token_secret = file-secret
`)

	t.Setenv("WARDEN_TOKEN_SECRET", "env-secret")
	t.Setenv("WARDEN_SITE", "beta")

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	profile, err := registry.GetProfile(context.Background(), "DEFAULT")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", profile.TokenSecret)
	assert.Equal(t, "beta", profile.SiteScope)
}

func TestRegistry_GetProfiles(t *testing.T) {
	path := writeProfiles(t, `
[DEFAULT]
server_url = https://bi.example.com
token_name = warden
token_secret = s3cret

[staging]
server_url = https://staging.example.com
token_name = warden-stg
token_secret = stg-secret
`)

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	profiles, err := registry.GetProfiles(context.Background())
	require.NoError(t, err)
	assert.Contains(t, profiles, "DEFAULT")
	assert.Contains(t, profiles, "staging")
}
