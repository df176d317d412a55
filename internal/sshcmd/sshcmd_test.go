package sshcmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelldeck/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestResolveExplicitFieldsWithoutConfig(t *testing.T) {
	r := Resolver{ConfigPath: filepath.Join(t.TempDir(), "missing")}
	cmd := r.Resolve(model.Host{
		Hostname: "10.0.0.10",
		Username: "ubuntu",
		Port:     22,
	})

	assert.Equal(t, []string{"ssh", "-tt", "-p", "22", "-l", "ubuntu", "10.0.0.10"}, cmd.Argv)
	assert.Equal(t, "10.0.0.10", cmd.Target)
	assert.Equal(t, "ubuntu", cmd.User)
	assert.Equal(t, 22, cmd.Port)
	assert.Empty(t, cmd.IdentityFile)
}

func TestResolveAliasDelegatesEntirely(t *testing.T) {
	cfg := writeConfig(t, "Host prod-box\n  User configured\n  Port 2200\n")
	r := Resolver{ConfigPath: cfg}

	cmd := r.Resolve(model.Host{
		ConfigAlias: "prod-box",
		Hostname:    "ignored.example.com",
		Username:    "also-ignored",
		Port:        9999,
	})

	assert.Equal(t, []string{"ssh", "-tt", "prod-box"}, cmd.Argv)
	assert.Equal(t, "prod-box", cmd.Target)
	assert.Empty(t, cmd.User)
	assert.Zero(t, cmd.Port)
	assert.Empty(t, cmd.IdentityFile)
}

func TestResolveConfigFillsMissingFields(t *testing.T) {
	cfg := writeConfig(t, "Host web.example.com\n  User deploy\n  Port 2222\n  IdentityFile /keys/web\n")
	r := Resolver{ConfigPath: cfg}

	cmd := r.Resolve(model.Host{Hostname: "web.example.com"})

	assert.Equal(t, "deploy", cmd.User)
	assert.Equal(t, 2222, cmd.Port)
	assert.Equal(t, "/keys/web", cmd.IdentityFile)
	assert.Equal(t,
		[]string{"ssh", "-tt", "-p", "2222", "-l", "deploy", "-i", "/keys/web", "web.example.com"},
		cmd.Argv)
}

func TestResolveExplicitWinsOverConfigPerField(t *testing.T) {
	cfg := writeConfig(t, "Host web.example.com\n  User deploy\n  Port 2222\n")
	r := Resolver{ConfigPath: cfg}

	cmd := r.Resolve(model.Host{Hostname: "web.example.com", Username: "root"})

	assert.Equal(t, "root", cmd.User)
	assert.Equal(t, 2222, cmd.Port)
}

func TestResolveAbsentPortEmitsNoFlag(t *testing.T) {
	r := Resolver{ConfigPath: filepath.Join(t.TempDir(), "missing")}
	cmd := r.Resolve(model.Host{Hostname: "bare.example.com"})

	assert.Equal(t, []string{"ssh", "-tt", "bare.example.com"}, cmd.Argv)
	assert.Zero(t, cmd.Port)
}

func TestResolveMalformedConfigDegradesSilently(t *testing.T) {
	cfg := writeConfig(t, "Host web\n\tPort not-a-number\n  \x00garbage")
	r := Resolver{ConfigPath: cfg}

	cmd := r.Resolve(model.Host{Hostname: "web"})
	assert.Equal(t, "web", cmd.Argv[len(cmd.Argv)-1])
	assert.Zero(t, cmd.Port)
}

func TestResolveDebugAddsVerbose(t *testing.T) {
	r := Resolver{ConfigPath: filepath.Join(t.TempDir(), "missing"), Debug: true}
	cmd := r.Resolve(model.Host{Hostname: "h"})
	assert.Equal(t, []string{"ssh", "-tt", "-vvv", "h"}, cmd.Argv)
}

func TestDisplayIsShellSafe(t *testing.T) {
	r := Resolver{ConfigPath: filepath.Join(t.TempDir(), "missing")}
	cmd := r.Resolve(model.Host{
		Hostname:     "host with space",
		IdentityFile: "/keys/my key",
	})
	assert.Contains(t, cmd.Display, "'/keys/my key'")
	assert.Contains(t, cmd.Display, "'host with space'")
}

func TestExpandUser(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh", "id_ed25519"), ExpandUser("~/.ssh/id_ed25519"))
	assert.Equal(t, home, ExpandUser("~"))
	assert.Equal(t, "/abs/path", ExpandUser("/abs/path"))
	assert.Equal(t, "", ExpandUser(""))
}

func TestIdentityFileFromArgv(t *testing.T) {
	assert.Equal(t, "/k/id", IdentityFileFromArgv([]string{"ssh", "-tt", "-i", "/k/id", "h"}))
	assert.Equal(t, "/k/id", IdentityFileFromArgv([]string{"ssh", "-i/k/id", "h"}))
	assert.Empty(t, IdentityFileFromArgv([]string{"ssh", "-tt", "h"}))
	assert.Empty(t, IdentityFileFromArgv([]string{"ssh", "-i"}))
}

func TestListEntriesSkipsPatternsAndSorts(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := writeConfig(t, `Host *
  ServerAliveInterval 30

Host zeta
  HostName z.internal
  Port 2222

Host alpha
  User deploy
  IdentityFile ~/keys/alpha
  ProxyJump bastion.example.com

Host web-* db?
  User ignored
`)
	entries := Resolver{ConfigPath: cfg}.ListEntries()
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{
		Alias:        "alpha",
		Hostname:     "alpha",
		User:         "deploy",
		IdentityFile: filepath.Join(home, "keys", "alpha"),
		ProxyJump:    "bastion.example.com",
	}, entries[0])
	assert.Equal(t, Entry{
		Alias:    "zeta",
		Hostname: "z.internal",
		Port:     2222,
	}, entries[1])
}

func TestListEntriesMissingConfig(t *testing.T) {
	r := Resolver{ConfigPath: filepath.Join(t.TempDir(), "missing")}
	assert.Empty(t, r.ListEntries())
}
