// Package model holds the records the rest of the application moves
// around: host entries, the groups that organize them, and tags.
package model

import "strings"

// Group is a named container for hosts in the sidebar tree.
type Group struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Host is one connectable SSH target. Username, Port and IdentityFile
// are optional overrides; when empty the ssh client configuration (or
// its defaults) decide.
type Host struct {
	ID           int64    `json:"id,omitempty"`
	GroupID      int64    `json:"group_id,omitempty"`
	Label        string   `json:"label"`
	Hostname     string   `json:"hostname"`
	Username     string   `json:"username,omitempty"`
	Port         int      `json:"port,omitempty"`
	IdentityFile string   `json:"identity_file,omitempty"`
	ConfigAlias  string   `json:"config_alias,omitempty"`
	Favorite     bool     `json:"favorite,omitempty"`
	Color        string   `json:"color,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// DisplayLabel returns the label, falling back to the hostname or alias
// when no label was set.
func (h Host) DisplayLabel() string {
	if s := strings.TrimSpace(h.Label); s != "" {
		return s
	}
	if s := strings.TrimSpace(h.Hostname); s != "" {
		return s
	}
	return strings.TrimSpace(h.ConfigAlias)
}

// Endpoint returns the name the host is reached by, preferring the
// config alias when one is set.
func (h Host) Endpoint() string {
	if s := strings.TrimSpace(h.ConfigAlias); s != "" {
		return s
	}
	return strings.TrimSpace(h.Hostname)
}
