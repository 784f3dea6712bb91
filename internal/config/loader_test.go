package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadCredentialsTOML(t *testing.T) {
	path := writeTemp(t, "credentials.toml", `
host = "broker.example.com"
vpn = "default"
username = "monitor"
password = "secret"
`)
	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, Credentials{
		Host: "broker.example.com", VPN: "default", Username: "monitor", Password: "secret",
	}, creds)
}

func TestLoadCredentialsMissingFieldIsFatalCategory(t *testing.T) {
	path := writeTemp(t, "credentials.toml", `
host = "broker.example.com"
vpn = "default"
username = "monitor"
`)
	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestLoadSubscriptionTableTOML(t *testing.T) {
	path := writeTemp(t, "subscriptionTable.toml", `
[temp]
filename = "t.lua"

[pressure]
filename = "p.lua"
timer = 30
`)
	infos, err := LoadSubscriptionTable(path)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byTopic := map[string]SubscriptionInfo{}
	for _, i := range infos {
		byTopic[i.Topic] = i
	}
	assert.Equal(t, SubscriptionInfo{Topic: "temp", ScriptName: "t.lua", PeriodSeconds: 0}, byTopic["temp"])
	assert.Equal(t, SubscriptionInfo{Topic: "pressure", ScriptName: "p.lua", PeriodSeconds: 30}, byTopic["pressure"])
}

func TestLoadSubscriptionTableRejectsUnknownKey(t *testing.T) {
	path := writeTemp(t, "subscriptionTable.toml", `
[temp]
filename = "t.lua"
retries = 3
`)
	_, err := LoadSubscriptionTable(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSubscriptionKey)
}

func TestLoadSubscriptionTableRejectsNegativeTimer(t *testing.T) {
	path := writeTemp(t, "subscriptionTable.toml", `
[temp]
filename = "t.lua"
timer = -5
`)
	_, err := LoadSubscriptionTable(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTimerValue)
}

func TestLoadSubscriptionTableRejectsZeroTimer(t *testing.T) {
	path := writeTemp(t, "subscriptionTable.toml", `
[temp]
filename = "t.lua"
timer = 0
`)
	_, err := LoadSubscriptionTable(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTimerValue)
}

func TestLoadSubscriptionTableYAML(t *testing.T) {
	path := writeTemp(t, "subscriptionTable.yaml", "temp:\n  filename: t.lua\n  timer: 60\n")
	infos, err := LoadSubscriptionTable(path)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, uint32(60), infos[0].PeriodSeconds)
}

func TestValidateRejectsOversizeTopic(t *testing.T) {
	big := make([]byte, 251)
	for i := range big {
		big[i] = 'a'
	}
	info := SubscriptionInfo{Topic: string(big), ScriptName: "x.lua"}
	assert.ErrorIs(t, info.Validate(), ErrInvalidSubscription)
}
