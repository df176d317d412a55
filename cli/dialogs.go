// dialogs.go - Host and group editors plus JSON import/export pickers
package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"shelldeck/internal/model"
	"shelldeck/internal/sshcmd"
)

// showHostDialog opens the add/edit form. existing is nil for a new host.
func (m *HostManager) showHostDialog(existing *model.Host) {
	labelEntry := widget.NewEntry()
	labelEntry.SetPlaceHolder("web-1")

	hostnameEntry := widget.NewEntry()
	hostnameEntry.SetPlaceHolder("192.168.1.10 or host.example.com")

	portEntry := widget.NewEntry()
	portEntry.SetPlaceHolder("22 (blank = ssh config)")

	userEntry := widget.NewEntry()
	userEntry.SetPlaceHolder("blank = ssh config")

	identityEntry := widget.NewEntry()
	identityEntry.SetPlaceHolder("~/.ssh/id_ed25519 (blank = ssh config)")

	aliasEntry := widget.NewEntry()
	aliasEntry.SetPlaceHolder("ssh config Host alias (overrides fields above)")

	tagsEntry := widget.NewEntry()
	tagsEntry.SetPlaceHolder("prod, web")

	notesEntry := widget.NewMultiLineEntry()
	notesEntry.SetMinRowsVisible(3)

	favoriteCheck := widget.NewCheck("Favorite", nil)

	groupNames := make([]string, 0, len(m.groups))
	for _, g := range m.groups {
		groupNames = append(groupNames, g.Name)
	}
	groupSelect := widget.NewSelectEntry(groupNames)
	groupSelect.SetPlaceHolder("Default")

	title := "Add Host"
	if existing != nil {
		title = "Edit Host"
		labelEntry.SetText(existing.Label)
		hostnameEntry.SetText(existing.Hostname)
		if existing.Port != 0 {
			portEntry.SetText(strconv.Itoa(existing.Port))
		}
		userEntry.SetText(existing.Username)
		identityEntry.SetText(existing.IdentityFile)
		aliasEntry.SetText(existing.ConfigAlias)
		tagsEntry.SetText(strings.Join(existing.Tags, ", "))
		notesEntry.SetText(existing.Notes)
		favoriteCheck.SetChecked(existing.Favorite)
		for _, g := range m.groups {
			if g.ID == existing.GroupID {
				groupSelect.SetText(g.Name)
				break
			}
		}
	}

	items := []*widget.FormItem{
		widget.NewFormItem("Label", labelEntry),
		widget.NewFormItem("Group", groupSelect),
		widget.NewFormItem("Hostname", hostnameEntry),
		widget.NewFormItem("Port", portEntry),
		widget.NewFormItem("Username", userEntry),
		widget.NewFormItem("Identity file", identityEntry),
		widget.NewFormItem("Config alias", aliasEntry),
		widget.NewFormItem("Tags", tagsEntry),
		widget.NewFormItem("Notes", notesEntry),
		widget.NewFormItem("", favoriteCheck),
	}

	d := dialog.NewForm(title, "Save", "Cancel", items,
		func(confirmed bool) {
			if !confirmed {
				return
			}
			if hostnameEntry.Text == "" && aliasEntry.Text == "" {
				dialog.ShowError(fmt.Errorf("hostname or config alias is required"), m.window)
				return
			}

			groupName := strings.TrimSpace(groupSelect.Text)
			if groupName == "" {
				groupName = "Default"
			}
			group, err := m.store.GetOrCreateGroup(groupName)
			if err != nil {
				dialog.ShowError(fmt.Errorf("group %q: %w", groupName, err), m.window)
				return
			}

			h := model.Host{
				GroupID:      group.ID,
				Label:        strings.TrimSpace(labelEntry.Text),
				Hostname:     strings.TrimSpace(hostnameEntry.Text),
				Username:     strings.TrimSpace(userEntry.Text),
				IdentityFile: strings.TrimSpace(identityEntry.Text),
				ConfigAlias:  strings.TrimSpace(aliasEntry.Text),
				Notes:        notesEntry.Text,
				Favorite:     favoriteCheck.Checked,
				Tags:         parseTags(tagsEntry.Text),
			}
			if portEntry.Text != "" {
				port, err := strconv.Atoi(strings.TrimSpace(portEntry.Text))
				if err != nil || port < 1 || port > 65535 {
					dialog.ShowError(fmt.Errorf("invalid port: %s", portEntry.Text), m.window)
					return
				}
				h.Port = port
			}

			if existing != nil {
				h.ID = existing.ID
				h.Color = existing.Color
				if err := m.store.UpdateHost(h); err != nil {
					dialog.ShowError(fmt.Errorf("update host: %w", err), m.window)
					return
				}
				log.Printf("Updated host %s", h.DisplayLabel())
			} else {
				created, err := m.store.CreateHost(h)
				if err != nil {
					dialog.ShowError(fmt.Errorf("create host: %w", err), m.window)
					return
				}
				log.Printf("Added host %s", created.DisplayLabel())
			}
			m.reload()
		},
		m.window,
	)
	d.Resize(fyne.NewSize(480, 520))
	d.Show()
	m.window.Canvas().Focus(labelEntry)
}

func parseTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// showGroupDialog adds a new group
func (m *HostManager) showGroupDialog() {
	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("Servers")

	items := []*widget.FormItem{
		widget.NewFormItem("Name", nameEntry),
	}

	d := dialog.NewForm("Add Group", "Add", "Cancel", items,
		func(confirmed bool) {
			if !confirmed || nameEntry.Text == "" {
				return
			}
			if _, err := m.store.CreateGroup(strings.TrimSpace(nameEntry.Text)); err != nil {
				dialog.ShowError(fmt.Errorf("create group: %w", err), m.window)
				return
			}
			m.reload()
		},
		m.window,
	)
	d.Resize(fyne.NewSize(360, 140))
	d.Show()
	m.window.Canvas().Focus(nameEntry)
}

// DeleteSelectedHost removes the selected host after confirmation
func (m *HostManager) DeleteSelectedHost() {
	host := m.selectedHost
	if host == nil {
		return
	}
	dialog.ShowConfirm(
		"Delete Host",
		fmt.Sprintf("Delete '%s'? This cannot be undone.", host.DisplayLabel()),
		func(confirmed bool) {
			if !confirmed {
				return
			}
			if err := m.store.DeleteHost(host.ID); err != nil {
				dialog.ShowError(fmt.Errorf("delete host: %w", err), m.window)
				return
			}
			m.selectedHost = nil
			m.reload()
		},
		m.window,
	)
}

// showImportDialog merges hosts from a JSON export file
func (m *HostManager) showImportDialog() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		result, err := m.store.ImportJSON(path)
		if err != nil {
			dialog.ShowError(fmt.Errorf("import: %w", err), m.window)
			return
		}
		m.reload()
		m.refreshProbes()
		dialog.ShowInformation("Import Complete",
			fmt.Sprintf("Hosts added: %d\nHosts updated: %d\nGroups added: %d",
				result.HostsInserted, result.HostsUpdated, result.GroupsAdded),
			m.window)
	}, m.window)
}

// showSSHImportDialog lists the concrete hosts of the ssh client
// configuration and merges the checked ones into the Imported group
func (m *HostManager) showSSHImportDialog() {
	settings := GetSettings().Get()
	entries := sshcmd.Resolver{ConfigPath: settings.SSHConfigPath}.ListEntries()
	if len(entries) == 0 {
		dialog.ShowInformation("No Entries", "No SSH config entries found.", m.window)
		return
	}

	checks := make([]*widget.Check, len(entries))
	list := container.NewVBox()
	for i, e := range entries {
		c := widget.NewCheck(sshEntryLabel(e), nil)
		c.SetChecked(true)
		checks[i] = c
		list.Add(c)
	}

	setAll := func(checked bool) {
		for _, c := range checks {
			c.SetChecked(checked)
		}
	}
	scroll := container.NewVScroll(list)
	scroll.SetMinSize(fyne.NewSize(420, 300))
	content := container.NewBorder(nil,
		container.NewHBox(
			widget.NewButton("Select All", func() { setAll(true) }),
			widget.NewButton("Select None", func() { setAll(false) }),
		),
		nil, nil, scroll)

	dialog.ShowCustomConfirm("Import from SSH Config", "Import", "Cancel", content,
		func(ok bool) {
			if !ok {
				return
			}
			var selected []sshcmd.Entry
			for i, c := range checks {
				if c.Checked {
					selected = append(selected, entries[i])
				}
			}
			if len(selected) == 0 {
				return
			}
			result, err := m.store.ImportSSHEntries(selected)
			if err != nil {
				dialog.ShowError(fmt.Errorf("ssh config import: %w", err), m.window)
				return
			}
			m.reload()
			m.refreshProbes()
			dialog.ShowInformation("Import Complete",
				fmt.Sprintf("Hosts added: %d\nHosts updated: %d",
					result.HostsInserted, result.HostsUpdated),
				m.window)
		}, m.window)
}

// sshEntryLabel renders one config entry as a checkbox caption
func sshEntryLabel(e sshcmd.Entry) string {
	detail := e.Hostname
	if e.User != "" {
		detail = e.User + "@" + detail
	}
	if e.Port != 0 {
		detail = fmt.Sprintf("%s:%d", detail, e.Port)
	}
	if e.ProxyJump != "" {
		detail += " via " + e.ProxyJump
	}
	if detail == e.Alias {
		return e.Alias
	}
	return fmt.Sprintf("%s (%s)", e.Alias, detail)
}

// showExportDialog writes the full host database to a JSON file
func (m *HostManager) showExportDialog() {
	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, m.window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		settings := GetSettings().Get()
		meta := map[string]any{
			"dark_mode": settings.DarkMode,
			"font_size": settings.FontSize,
		}
		if err := m.store.ExportJSON(path, meta); err != nil {
			dialog.ShowError(fmt.Errorf("export: %w", err), m.window)
			return
		}
		dialog.ShowInformation("Export Complete", fmt.Sprintf("Wrote %s", path), m.window)
	}, m.window)
}
