package store

import (
	"errors"

	"shelldeck/internal/model"
	"shelldeck/internal/sshcmd"
)

// Group that receives hosts imported from the ssh client configuration.
const sshImportGroup = "Imported"

// ImportSSHEntries merges ssh client configuration entries into the
// "Imported" group. An entry matches an existing host by hostname or by
// alias and is updated field by field, keeping notes, tags, favorite
// and color; everything else is inserted. The config alias is recorded
// on every imported host so later connects delegate resolution to the
// ssh client itself.
func (s *Store) ImportSSHEntries(entries []sshcmd.Entry) (ImportResult, error) {
	var result ImportResult

	group, err := s.GetGroupByName(sshImportGroup)
	if errors.Is(err, ErrNotFound) {
		group, err = s.CreateGroup(sshImportGroup)
		if err == nil {
			result.GroupsAdded++
		}
	}
	if err != nil {
		return result, err
	}

	for _, e := range entries {
		existing, err := s.FindHostForMerge(group.ID, e.Hostname, e.Alias)
		switch {
		case err == nil:
			merged := existing
			merged.Label = e.Alias
			merged.Hostname = e.Hostname
			merged.ConfigAlias = e.Alias
			if e.Port != 0 {
				merged.Port = e.Port
			}
			if e.User != "" {
				merged.Username = e.User
			}
			if e.IdentityFile != "" {
				merged.IdentityFile = e.IdentityFile
			}
			if err := s.UpdateHost(merged); err != nil {
				return result, err
			}
			result.HostsUpdated++
		case errors.Is(err, ErrNotFound):
			h := model.Host{
				GroupID:      group.ID,
				Label:        e.Alias,
				Hostname:     e.Hostname,
				Port:         e.Port,
				Username:     e.User,
				IdentityFile: e.IdentityFile,
				ConfigAlias:  e.Alias,
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
