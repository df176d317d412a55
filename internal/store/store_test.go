package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelldeck/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "shelldeck.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelldeck.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ListGroups()
	assert.NoError(t, err)
}

func TestGroupCRUD(t *testing.T) {
	s := openTemp(t)

	g, err := s.CreateGroup("production")
	require.NoError(t, err)
	assert.NotZero(t, g.ID)

	_, err = s.CreateGroup("production")
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetGroupByName("production")
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)

	require.NoError(t, s.RenameGroup(g.ID, "prod"))
	_, err = s.GetGroupByName("production")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteGroup(g.ID))
	groups, err := s.ListGroups()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestHostRoundTripWithTags(t *testing.T) {
	s := openTemp(t)
	g, err := s.CreateGroup("lab")
	require.NoError(t, err)

	h, err := s.CreateHost(model.Host{
		GroupID:      g.ID,
		Label:        "build box",
		Hostname:     "10.1.2.3",
		Username:     "builder",
		Port:         2222,
		IdentityFile: "~/.ssh/id_lab",
		Notes:        "jenkins agent",
		Favorite:     true,
		Color:        "#ff8800",
		Tags:         []string{"ci", "linux"},
	})
	require.NoError(t, err)
	require.NotZero(t, h.ID)

	got, err := s.GetHost(h.ID)
	require.NoError(t, err)
	assert.Equal(t, "build box", got.Label)
	assert.Equal(t, "builder", got.Username)
	assert.Equal(t, 2222, got.Port)
	assert.True(t, got.Favorite)
	assert.Equal(t, []string{"ci", "linux"}, got.Tags)

	got.Tags = []string{"ci"}
	got.Username = ""
	require.NoError(t, s.UpdateHost(got))

	again, err := s.GetHost(h.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ci"}, again.Tags)
	assert.Empty(t, again.Username)

	require.NoError(t, s.DeleteHost(h.ID))
	_, err = s.GetHost(h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAbsentPortStoredAsNull(t *testing.T) {
	s := openTemp(t)
	g, err := s.CreateGroup("lab")
	require.NoError(t, err)

	h, err := s.CreateHost(model.Host{GroupID: g.ID, Label: "bare", Hostname: "bare.local"})
	require.NoError(t, err)

	got, err := s.GetHost(h.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Port)
}

func TestDeleteGroupCascadesHosts(t *testing.T) {
	s := openTemp(t)
	g, err := s.CreateGroup("doomed")
	require.NoError(t, err)
	h, err := s.CreateHost(model.Host{GroupID: g.ID, Label: "x", Hostname: "x.local"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteGroup(g.ID))
	_, err = s.GetHost(h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateHostnameInGroupRejected(t *testing.T) {
	s := openTemp(t)
	g, err := s.CreateGroup("lab")
	require.NoError(t, err)

	_, err = s.CreateHost(model.Host{GroupID: g.ID, Label: "a", Hostname: "same.local"})
	require.NoError(t, err)
	_, err = s.CreateHost(model.Host{GroupID: g.ID, Label: "b", Hostname: "same.local"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSetFavorite(t *testing.T) {
	s := openTemp(t)
	g, err := s.CreateGroup("lab")
	require.NoError(t, err)
	h, err := s.CreateHost(model.Host{GroupID: g.ID, Label: "a", Hostname: "a.local"})
	require.NoError(t, err)

	require.NoError(t, s.SetFavorite(h.ID, true))
	got, err := s.GetHost(h.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorite)
}
