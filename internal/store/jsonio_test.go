package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelldeck/internal/model"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := openTemp(t)
	g, err := src.CreateGroup("production")
	require.NoError(t, err)
	_, err = src.CreateHost(model.Host{
		GroupID:  g.ID,
		Label:    "web-1",
		Hostname: "web1.example.com",
		Username: "deploy",
		Port:     2222,
		Tags:     []string{"web"},
		Favorite: true,
	})
	require.NoError(t, err)
	_, err = src.CreateHost(model.Host{
		GroupID:     g.ID,
		Label:       "bastion",
		Hostname:    "bastion.example.com",
		ConfigAlias: "bastion",
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, src.ExportJSON(path, nil))

	dst := openTemp(t)
	result, err := dst.ImportJSON(path)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{GroupsAdded: 1, HostsInserted: 2}, result)

	grp, err := dst.GetGroupByName("production")
	require.NoError(t, err)
	hosts, err := dst.ListHostsForGroup(grp.ID)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "bastion", hosts[0].ConfigAlias)
	assert.Equal(t, "deploy", hosts[1].Username)
	assert.Equal(t, []string{"web"}, hosts[1].Tags)
	assert.True(t, hosts[1].Favorite)
}

func TestExportFormat(t *testing.T) {
	s := openTemp(t)
	g, err := s.CreateGroup("lab")
	require.NoError(t, err)
	_, err = s.CreateHost(model.Host{GroupID: g.ID, Label: "a", Hostname: "a.local", Tags: []string{"t1"}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, s.ExportJSON(path, map[string]any{"theme": "dark"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.EqualValues(t, 2, doc["schema_version"])
	assert.Contains(t, doc, "exported_at")
	assert.Equal(t, []any{"t1"}, doc["tags"])
	assert.Equal(t, map[string]any{"theme": "dark"}, doc["settings"])

	hosts := doc["hosts"].([]any)
	require.Len(t, hosts, 1)
	host := hosts[0].(map[string]any)
	assert.Equal(t, "lab", host["group"])
	assert.Nil(t, host["port"])
}

func TestImportMergesExistingHostByHostname(t *testing.T) {
	s := openTemp(t)
	g, err := s.CreateGroup("lab")
	require.NoError(t, err)
	existing, err := s.CreateHost(model.Host{
		GroupID:  g.ID,
		Label:    "old label",
		Hostname: "shared.local",
		Username: "olduser",
		Notes:    "keep me",
	})
	require.NoError(t, err)

	payload := `{
		"schema_version": 2,
		"groups": [{"name": "lab"}],
		"hosts": [{
			"name": "new label",
			"group": "lab",
			"hostname": "shared.local",
			"user": "newuser",
			"port": 2200,
			"tags": ["imported"],
			"favorite": true
		}]
	}`
	path := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	result, err := s.ImportJSON(path)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{HostsUpdated: 1}, result)

	got, err := s.GetHost(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "new label", got.Label)
	assert.Equal(t, "newuser", got.Username)
	assert.Equal(t, 2200, got.Port)
	assert.Equal(t, "keep me", got.Notes)
	assert.Equal(t, []string{"imported"}, got.Tags)
	assert.True(t, got.Favorite)
}

func TestImportHostWithoutGroupLandsInImported(t *testing.T) {
	s := openTemp(t)
	payload := `{"hosts": [{"name": "stray", "hostname": "stray.local"}]}`
	path := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	result, err := s.ImportJSON(path)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{GroupsAdded: 1, HostsInserted: 1}, result)

	g, err := s.GetGroupByName("Imported")
	require.NoError(t, err)
	hosts, err := s.ListHostsForGroup(g.ID)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "stray", hosts[0].Label)
}

func TestImportHostWithoutHostnameUsesLabel(t *testing.T) {
	s := openTemp(t)
	payload := `{"groups": [{"name": "g"}], "hosts": [{"name": "justname", "group": "g"}]}`
	path := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	_, err := s.ImportJSON(path)
	require.NoError(t, err)

	g, err := s.GetGroupByName("g")
	require.NoError(t, err)
	hosts, err := s.ListHostsForGroup(g.ID)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "justname", hosts[0].Hostname)
}

func TestImportMalformedFileFails(t *testing.T) {
	s := openTemp(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := s.ImportJSON(path)
	assert.Error(t, err)
}
