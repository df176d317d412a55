package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shelldeck/internal/model"
)

// ListGroups returns all groups ordered by name.
func (s *Store) ListGroups() ([]model.Group, error) {
	rows, err := s.db.Query("SELECT id, name FROM groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroupByName looks a group up by its unique name.
func (s *Store) GetGroupByName(name string) (model.Group, error) {
	var g model.Group
	err := s.db.QueryRow("SELECT id, name FROM groups WHERE name = ?", name).Scan(&g.ID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Group{}, ErrNotFound
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("get group %q: %w", name, err)
	}
	return g, nil
}

// CreateGroup inserts a new group.
func (s *Store) CreateGroup(name string) (model.Group, error) {
	res, err := s.db.Exec("INSERT INTO groups (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Group{}, fmt.Errorf("group %q: %w", name, ErrDuplicate)
		}
		return model.Group{}, fmt.Errorf("create group %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Group{}, fmt.Errorf("create group %q: %w", name, err)
	}
	return model.Group{ID: id, Name: name}, nil
}

// GetOrCreateGroup returns the existing group or creates it.
func (s *Store) GetOrCreateGroup(name string) (model.Group, error) {
	g, err := s.GetGroupByName(name)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Group{}, err
	}
	return s.CreateGroup(name)
}

// RenameGroup updates a group's name.
func (s *Store) RenameGroup(id int64, name string) error {
	if _, err := s.db.Exec("UPDATE groups SET name = ? WHERE id = ?", name, id); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group %q: %w", name, ErrDuplicate)
		}
		return fmt.Errorf("rename group %d: %w", id, err)
	}
	return nil
}

// DeleteGroup removes a group; its hosts cascade away with it.
func (s *Store) DeleteGroup(id int64) error {
	if _, err := s.db.Exec("DELETE FROM groups WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete group %d: %w", id, err)
	}
	return nil
}

const hostColumns = "id, group_id, name, hostname, port, user, identity_file, ssh_config_host_alias, notes, favorite, color"

func scanHost(scan func(dest ...any) error) (model.Host, error) {
	var h model.Host
	var port sql.NullInt64
	var user, identity, alias, notes, color sql.NullString
	var favorite int
	err := scan(&h.ID, &h.GroupID, &h.Label, &h.Hostname, &port, &user, &identity, &alias, &notes, &favorite, &color)
	if err != nil {
		return model.Host{}, err
	}
	h.Port = int(port.Int64)
	h.Username = user.String
	h.IdentityFile = identity.String
	h.ConfigAlias = alias.String
	h.Notes = notes.String
	h.Favorite = favorite != 0
	h.Color = color.String
	return h, nil
}

// ListHostsForGroup returns a group's hosts ordered by label, tags
// populated.
func (s *Store) ListHostsForGroup(groupID int64) ([]model.Host, error) {
	rows, err := s.db.Query("SELECT "+hostColumns+" FROM hosts WHERE group_id = ? ORDER BY name", groupID)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []model.Host
	for rows.Next() {
		h, err := scanHost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan host: %w", err)
		}
		hosts = append(hosts, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.attachTags(hosts)
}

// GetHost returns one host by id.
func (s *Store) GetHost(id int64) (model.Host, error) {
	h, err := scanHost(s.db.QueryRow("SELECT "+hostColumns+" FROM hosts WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Host{}, ErrNotFound
	}
	if err != nil {
		return model.Host{}, fmt.Errorf("get host %d: %w", id, err)
	}
	hosts, err := s.attachTags([]model.Host{h})
	if err != nil {
		return model.Host{}, err
	}
	return hosts[0], nil
}

// FindHostForMerge locates the import-merge counterpart of a payload:
// first by (group, hostname), then by (group, label).
func (s *Store) FindHostForMerge(groupID int64, hostname, label string) (model.Host, error) {
	queries := []struct {
		column, value string
	}{
		{"hostname", hostname},
		{"name", label},
	}
	for _, q := range queries {
		if strings.TrimSpace(q.value) == "" {
			continue
		}
		h, err := scanHost(s.db.QueryRow(
			"SELECT "+hostColumns+" FROM hosts WHERE group_id = ? AND "+q.column+" = ?",
			groupID, q.value,
		).Scan)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return model.Host{}, fmt.Errorf("find host: %w", err)
		}
		hosts, err := s.attachTags([]model.Host{h})
		if err != nil {
			return model.Host{}, err
		}
		return hosts[0], nil
	}
	return model.Host{}, ErrNotFound
}

// CreateHost inserts a host and its tag links.
func (s *Store) CreateHost(h model.Host) (model.Host, error) {
	res, err := s.db.Exec(`
		INSERT INTO hosts
			(group_id, name, hostname, port, user, identity_file, ssh_config_host_alias, notes, favorite, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.GroupID, h.Label, h.Hostname, nullInt(h.Port), nullStr(h.Username),
		nullStr(h.IdentityFile), nullStr(h.ConfigAlias), nullStr(h.Notes),
		boolInt(h.Favorite), nullStr(h.Color),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Host{}, fmt.Errorf("host %q: %w", h.Hostname, ErrDuplicate)
		}
		return model.Host{}, fmt.Errorf("create host %q: %w", h.Label, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Host{}, fmt.Errorf("create host %q: %w", h.Label, err)
	}
	h.ID = id
	if err := s.setHostTags(h.ID, h.Tags); err != nil {
		return model.Host{}, err
	}
	return h, nil
}

// UpdateHost rewrites a host record and its tag links.
func (s *Store) UpdateHost(h model.Host) error {
	_, err := s.db.Exec(`
		UPDATE hosts
		SET group_id = ?, name = ?, hostname = ?, port = ?, user = ?,
			identity_file = ?, ssh_config_host_alias = ?, notes = ?,
			favorite = ?, color = ?
		WHERE id = ?`,
		h.GroupID, h.Label, h.Hostname, nullInt(h.Port), nullStr(h.Username),
		nullStr(h.IdentityFile), nullStr(h.ConfigAlias), nullStr(h.Notes),
		boolInt(h.Favorite), nullStr(h.Color), h.ID,
	)
	if err != nil {
		return fmt.Errorf("update host %d: %w", h.ID, err)
	}
	return s.setHostTags(h.ID, h.Tags)
}

// DeleteHost removes a host; tag links cascade.
func (s *Store) DeleteHost(id int64) error {
	if _, err := s.db.Exec("DELETE FROM hosts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete host %d: %w", id, err)
	}
	return nil
}

// SetFavorite flips the favorite marker on a host.
func (s *Store) SetFavorite(id int64, favorite bool) error {
	if _, err := s.db.Exec("UPDATE hosts SET favorite = ? WHERE id = ?", boolInt(favorite), id); err != nil {
		return fmt.Errorf("set favorite on host %d: %w", id, err)
	}
	return nil
}

func (s *Store) attachTags(hosts []model.Host) ([]model.Host, error) {
	if len(hosts) == 0 {
		return hosts, nil
	}
	ids := make([]any, len(hosts))
	placeholders := make([]string, len(hosts))
	index := make(map[int64]int, len(hosts))
	for i := range hosts {
		ids[i] = hosts[i].ID
		placeholders[i] = "?"
		index[hosts[i].ID] = i
	}
	rows, err := s.db.Query(`
		SELECT ht.host_id, t.name
		FROM host_tags ht
		JOIN tags t ON t.id = ht.tag_id
		WHERE ht.host_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY t.name`, ids...)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hostID int64
		var name string
		if err := rows.Scan(&hostID, &name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if i, ok := index[hostID]; ok {
			hosts[i].Tags = append(hosts[i].Tags, name)
		}
	}
	return hosts, rows.Err()
}

func (s *Store) setHostTags(hostID int64, tags []string) error {
	if _, err := s.db.Exec("DELETE FROM host_tags WHERE host_id = ?", hostID); err != nil {
		return fmt.Errorf("clear host tags: %w", err)
	}
	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if name == "" {
			continue
		}
		if _, err := s.db.Exec("INSERT OR IGNORE INTO tags (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("ensure tag %q: %w", name, err)
		}
		if _, err := s.db.Exec(`
			INSERT OR IGNORE INTO host_tags (host_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`, hostID, name); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullStr(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
