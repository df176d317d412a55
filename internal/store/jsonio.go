package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"shelldeck/internal/model"
)

// ImportResult reports what an inventory import changed.
type ImportResult struct {
	GroupsAdded   int
	HostsInserted int
	HostsUpdated  int
}

type exportFile struct {
	SchemaVersion int            `json:"schema_version"`
	ExportedAt    string         `json:"exported_at"`
	Groups        []exportGroup  `json:"groups"`
	Hosts         []exportHost   `json:"hosts"`
	Tags          []string       `json:"tags"`
	Settings      map[string]any `json:"settings,omitempty"`
}

type exportGroup struct {
	Name string `json:"name"`
}

type exportHost struct {
	Name         string   `json:"name"`
	Group        string   `json:"group"`
	Hostname     string   `json:"hostname"`
	Port         *int     `json:"port"`
	User         *string  `json:"user"`
	IdentityFile *string  `json:"identity_file"`
	ConfigAlias  *string  `json:"ssh_config_host_alias"`
	Notes        *string  `json:"notes"`
	Tags         []string `json:"tags"`
	Favorite     bool     `json:"favorite"`
	Color        *string  `json:"color"`
}

// ExportJSON writes the whole inventory to path. settings may be nil.
func (s *Store) ExportJSON(path string, settings map[string]any) error {
	groups, err := s.ListGroups()
	if err != nil {
		return err
	}

	out := exportFile{
		SchemaVersion: schemaVersion,
		ExportedAt:    time.Now().UTC().Format("2006-01-02T15:04:05") + "Z",
		Groups:        []exportGroup{},
		Hosts:         []exportHost{},
		Tags:          []string{},
		Settings:      settings,
	}

	tagSet := map[string]struct{}{}
	for _, group := range groups {
		out.Groups = append(out.Groups, exportGroup{Name: group.Name})
		hosts, err := s.ListHostsForGroup(group.ID)
		if err != nil {
			return err
		}
		for _, h := range hosts {
			for _, t := range h.Tags {
				tagSet[t] = struct{}{}
			}
			out.Hosts = append(out.Hosts, exportHost{
				Name:         h.Label,
				Group:        group.Name,
				Hostname:     h.Hostname,
				Port:         optInt(h.Port),
				User:         optStr(h.Username),
				IdentityFile: optStr(h.IdentityFile),
				ConfigAlias:  optStr(h.ConfigAlias),
				Notes:        optStr(h.Notes),
				Tags:         h.Tags,
				Favorite:     h.Favorite,
				Color:        optStr(h.Color),
			})
		}
	}
	for t := range tagSet {
		out.Tags = append(out.Tags, t)
	}
	sort.Strings(out.Tags)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ImportJSON merges an exported inventory into the store. Hosts match
// an existing record by (group, hostname) or (group, label) and are
// updated field by field; everything else is inserted.
func (s *Store) ImportJSON(path string) (ImportResult, error) {
	var result ImportResult

	data, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("read import: %w", err)
	}
	var in exportFile
	if err := json.Unmarshal(data, &in); err != nil {
		return result, fmt.Errorf("decode import: %w", err)
	}

	groupIDs := map[string]int64{}
	groups, err := s.ListGroups()
	if err != nil {
		return result, err
	}
	for _, g := range groups {
		groupIDs[g.Name] = g.ID
	}

	ensureGroup := func(name string) (int64, error) {
		if id, ok := groupIDs[name]; ok {
			return id, nil
		}
		g, err := s.CreateGroup(name)
		if err != nil {
			return 0, err
		}
		groupIDs[name] = g.ID
		result.GroupsAdded++
		return g.ID, nil
	}

	for _, g := range in.Groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		if _, err := ensureGroup(name); err != nil {
			return result, err
		}
	}

	for _, payload := range in.Hosts {
		groupName := strings.TrimSpace(payload.Group)
		if groupName == "" {
			groupName = "Imported"
		}
		groupID, err := ensureGroup(groupName)
		if err != nil {
			return result, err
		}

		label := strings.TrimSpace(payload.Name)
		if label == "" {
			label = "Unnamed"
		}
		hostname := strings.TrimSpace(payload.Hostname)

		existing, err := s.FindHostForMerge(groupID, hostname, label)
		switch {
		case err == nil:
			merged := existing
			merged.GroupID = groupID
			merged.Label = label
			if hostname != "" {
				merged.Hostname = hostname
			}
			if payload.Port != nil {
				merged.Port = *payload.Port
			}
			if payload.User != nil {
				merged.Username = *payload.User
			}
			if payload.IdentityFile != nil {
				merged.IdentityFile = *payload.IdentityFile
			}
			if payload.ConfigAlias != nil {
				merged.ConfigAlias = *payload.ConfigAlias
			}
			if payload.Notes != nil {
				merged.Notes = *payload.Notes
			}
			if len(payload.Tags) > 0 {
				merged.Tags = payload.Tags
			}
			merged.Favorite = payload.Favorite
			if payload.Color != nil {
				merged.Color = *payload.Color
			}
			if err := s.UpdateHost(merged); err != nil {
				return result, err
			}
			result.HostsUpdated++
		case errors.Is(err, ErrNotFound):
			if hostname == "" {
				hostname = label
			}
			h := model.Host{
				GroupID:  groupID,
				Label:    label,
				Hostname: hostname,
				Tags:     payload.Tags,
				Favorite: payload.Favorite,
			}
			if payload.Port != nil {
				h.Port = *payload.Port
			}
			if payload.User != nil {
				h.Username = *payload.User
			}
			if payload.IdentityFile != nil {
				h.IdentityFile = *payload.IdentityFile
			}
			if payload.ConfigAlias != nil {
				h.ConfigAlias = *payload.ConfigAlias
			}
			if payload.Notes != nil {
				h.Notes = *payload.Notes
			}
			if payload.Color != nil {
				h.Color = *payload.Color
			}
			if _, err := s.CreateHost(h); err != nil {
				return result, err
			}
			result.HostsInserted++
		default:
			return result, err
		}
	}

	return result, nil
}

func optStr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func optInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
