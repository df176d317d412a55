// manager.go - Host manager: sidebar tree of groups and hosts, tabbed
// terminal area, reachability dots and the ssh-agent indicator.
package main

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"shelldeck/internal/agent"
	"shelldeck/internal/model"
	"shelldeck/internal/probe"
	"shelldeck/internal/sched"
	"shelldeck/internal/session"
	"shelldeck/internal/store"
	"shelldeck/internal/term"
)

// HostManager drives the main window content
type HostManager struct {
	window fyne.Window
	loop   sched.Scheduler
	store  *store.Store

	prober   *probe.Prober
	agentMon *agent.Monitor

	tree          *widget.Tree
	tabContainer  *container.DocTabs
	mainContainer *fyne.Container
	searchEntry   *widget.Entry
	agentLabel    *widget.Label

	groups       []model.Group
	hostsByGroup map[int64][]model.Host
	filterText   string

	treeData   map[string][]string
	hostByUID  map[string]*model.Host
	groupByUID map[string]*model.Group

	activeTabs  map[string]*TerminalTab
	closingTabs map[string]bool
	reachable   map[int64]*bool

	selectedHost  *model.Host
	selectedGroup *model.Group
}

// NewHostManager loads hosts from the store and builds the UI
func NewHostManager(window fyne.Window, loop sched.Scheduler, st *store.Store) *HostManager {
	m := &HostManager{
		window:       window,
		loop:         loop,
		store:        st,
		prober:       probe.NewProber(loop, nil, nil),
		agentMon:     agent.NewMonitor(loop, nil, nil),
		hostsByGroup: make(map[int64][]model.Host),
		treeData:     make(map[string][]string),
		hostByUID:    make(map[string]*model.Host),
		groupByUID:   make(map[string]*model.Group),
		activeTabs:   make(map[string]*TerminalTab),
		closingTabs:  make(map[string]bool),
		reachable:    make(map[int64]*bool),
	}

	m.agentMon.SetEnabled(GetSettings().Get().UseAgent)
	m.agentMon.OnChange(m.handleAgentSnapshot)

	m.reload()
	m.buildUI()
	m.setupKeyboardCapture()

	m.agentMon.Refresh()
	m.refreshProbes()
	return m
}

// GetContainer returns the root container for the window
func (m *HostManager) GetContainer() *fyne.Container {
	return m.mainContainer
}

// reload pulls groups and hosts from the store and rebuilds tree data
func (m *HostManager) reload() {
	groups, err := m.store.ListGroups()
	if err != nil {
		log.Printf("Error loading groups: %v", err)
		return
	}
	m.groups = groups
	m.hostsByGroup = make(map[int64][]model.Host)

	for _, g := range groups {
		hosts, err := m.store.ListHostsForGroup(g.ID)
		if err != nil {
			log.Printf("Error loading hosts for group %s: %v", g.Name, err)
			continue
		}
		m.hostsByGroup[g.ID] = hosts
	}

	m.rebuildTreeData()
	if m.tree != nil {
		m.tree.Refresh()
	}
}

// rebuildTreeData applies the filter and maps tree node IDs
func (m *HostManager) rebuildTreeData() {
	m.treeData = make(map[string][]string)
	m.hostByUID = make(map[string]*model.Host)
	m.groupByUID = make(map[string]*model.Group)

	query := strings.ToLower(m.filterText)
	var rootChildren []string

	for i := range m.groups {
		g := &m.groups[i]
		groupUID := fmt.Sprintf("group:%d", g.ID)

		var hostUIDs []string
		hosts := m.hostsByGroup[g.ID]
		for j := range hosts {
			h := &hosts[j]
			if query != "" && !hostMatches(*h, query) {
				continue
			}
			uid := fmt.Sprintf("host:%d", h.ID)
			hostUIDs = append(hostUIDs, uid)
			m.hostByUID[uid] = h
		}

		// Hide empty groups while filtering
		if query != "" && len(hostUIDs) == 0 {
			continue
		}

		rootChildren = append(rootChildren, groupUID)
		m.treeData[groupUID] = hostUIDs
		m.groupByUID[groupUID] = g
	}
	m.treeData[""] = rootChildren
}

func hostMatches(h model.Host, query string) bool {
	text := strings.ToLower(strings.Join(append([]string{
		h.Label, h.Hostname, h.ConfigAlias, h.Username, h.Notes,
	}, h.Tags...), " "))
	return strings.Contains(text, query)
}

func (m *HostManager) buildUI() {
	m.tree = m.buildHostTree()

	m.tabContainer = container.NewDocTabs()
	m.tabContainer.CloseIntercept = m.handleTabClose
	m.tabContainer.OnSelected = func(item *container.TabItem) {
		m.updateTabVisibility()
	}

	m.agentLabel = widget.NewLabel("agent: checking...")
	m.agentLabel.TextStyle = fyne.TextStyle{Italic: true}

	sidebar := container.NewBorder(
		container.NewVBox(
			m.buildSidebarHeader(),
			m.buildSearchBox(),
		),
		container.NewVBox(
			m.agentLabel,
			m.buildSidebarFooter(),
		),
		nil, nil,
		container.NewVScroll(m.tree),
	)

	split := container.NewHSplit(sidebar, m.tabContainer)
	split.SetOffset(0.22)

	m.mainContainer = container.NewStack(split)
}

func (m *HostManager) buildSearchBox() fyne.CanvasObject {
	m.searchEntry = widget.NewEntry()
	m.searchEntry.SetPlaceHolder("Filter hosts...")

	m.searchEntry.OnChanged = func(text string) {
		m.filterText = text
		m.rebuildTreeData()
		m.tree.Refresh()
		if text != "" {
			for uid := range m.treeData {
				if strings.HasPrefix(uid, "group:") {
					m.tree.OpenBranch(uid)
				}
			}
		}
	}

	clearBtn := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		m.searchEntry.SetText("")
	})
	clearBtn.Importance = widget.LowImportance

	return container.NewBorder(nil, nil, nil, clearBtn, m.searchEntry)
}

func (m *HostManager) buildHostTree() *widget.Tree {
	tree := widget.NewTree(
		func(uid widget.TreeNodeID) []widget.TreeNodeID {
			return m.treeData[uid]
		},

		func(uid widget.TreeNodeID) bool {
			return uid == "" || strings.HasPrefix(uid, "group:")
		},

		func(branch bool) fyne.CanvasObject {
			if branch {
				icon := widget.NewIcon(theme.FolderIcon())
				name := widget.NewLabel("Group")
				name.TextStyle = fyne.TextStyle{Bold: true}
				count := widget.NewLabel("(0)")
				count.TextStyle = fyne.TextStyle{Italic: true}
				return container.NewHBox(icon, name, count)
			}

			icon := widget.NewIcon(theme.ComputerIcon())
			name := widget.NewLabel("Host")
			name.TextStyle = fyne.TextStyle{Bold: true}
			endpoint := widget.NewLabel("endpoint")
			status := widget.NewLabel("")
			row := container.NewHBox(icon, container.NewVBox(name, endpoint), status)
			return NewTappableBox(row, nil)
		},

		func(uid widget.TreeNodeID, branch bool, o fyne.CanvasObject) {
			if branch {
				box := o.(*fyne.Container)
				icon := box.Objects[0].(*widget.Icon)
				nameLabel := box.Objects[1].(*widget.Label)
				countLabel := box.Objects[2].(*widget.Label)

				if uid == "" {
					nameLabel.SetText("Hosts")
					countLabel.SetText("")
					icon.SetResource(theme.FolderIcon())
					return
				}

				g := m.groupByUID[uid]
				if g == nil {
					return
				}
				nameLabel.SetText(g.Name)
				countLabel.SetText(fmt.Sprintf("(%d)", len(m.treeData[uid])))
				if m.tree != nil && m.tree.IsBranchOpen(uid) {
					icon.SetResource(theme.FolderOpenIcon())
				} else {
					icon.SetResource(theme.FolderIcon())
				}
				return
			}

			h := m.hostByUID[uid]
			if h == nil {
				return
			}

			wrapper := o.(*TappableBox)
			wrapper.SetOnSecondaryTap(func(pos fyne.Position) {
				m.showHostMenu(h, pos)
			})

			box := wrapper.Content().(*fyne.Container)
			vbox := box.Objects[1].(*fyne.Container)
			nameLabel := vbox.Objects[0].(*widget.Label)
			endpointLabel := vbox.Objects[1].(*widget.Label)
			statusLabel := box.Objects[2].(*widget.Label)

			name := h.DisplayLabel()
			if h.Favorite {
				name = "★ " + name
			}
			nameLabel.SetText(name)
			endpointLabel.SetText(h.Endpoint())
			statusLabel.SetText(m.statusGlyph(h.ID))
		},
	)

	tree.OnSelected = func(uid widget.TreeNodeID) {
		m.selectedHost = m.hostByUID[uid]
		m.selectedGroup = m.groupByUID[uid]
		if m.selectedHost != nil {
			log.Printf("Selected host: %s", m.selectedHost.DisplayLabel())
		}
	}

	tree.OnBranchOpened = func(uid widget.TreeNodeID) { tree.Refresh() }
	tree.OnBranchClosed = func(uid widget.TreeNodeID) { tree.Refresh() }

	for uid := range m.treeData {
		if strings.HasPrefix(uid, "group:") {
			tree.OpenBranch(uid)
		}
	}

	return tree
}

// statusGlyph prefers live session state over the last probe result
func (m *HostManager) statusGlyph(hostID int64) string {
	for _, tab := range m.activeTabs {
		if tab.Host.ID != hostID {
			continue
		}
		switch tab.State() {
		case session.StateConnected:
			return "●"
		case session.StateConnecting, session.StateClosing:
			return "○"
		case session.StateError:
			return "✗"
		}
	}
	if up := m.reachable[hostID]; up != nil {
		if *up {
			return "▲"
		}
		return "▽"
	}
	return ""
}

// showHostMenu pops the right-click menu for a host row
func (m *HostManager) showHostMenu(h *model.Host, pos fyne.Position) {
	favoriteLabel := "Add to favorites"
	if h.Favorite {
		favoriteLabel = "Remove from favorites"
	}

	menu := fyne.NewMenu("",
		fyne.NewMenuItem("Connect", func() {
			m.ConnectHost(*h)
		}),
		fyne.NewMenuItem("Edit...", func() {
			m.showHostDialog(h)
		}),
		fyne.NewMenuItem(favoriteLabel, func() {
			if err := m.store.SetFavorite(h.ID, !h.Favorite); err != nil {
				log.Printf("Error toggling favorite for %s: %v", h.DisplayLabel(), err)
				return
			}
			m.reload()
		}),
		fyne.NewMenuItem("Delete...", func() {
			m.selectedHost = h
			m.DeleteSelectedHost()
		}),
	)
	widget.ShowPopUpMenuAtPosition(menu, m.window.Canvas(), pos)
}

func (m *HostManager) buildSidebarHeader() fyne.CanvasObject {
	title := widget.NewLabel("ShellDeck")
	title.TextStyle = fyne.TextStyle{Bold: true}

	addHostBtn := widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() {
		m.showHostDialog(nil)
	})
	addHostBtn.Importance = widget.LowImportance

	addGroupBtn := widget.NewButtonWithIcon("", theme.FolderNewIcon(), func() {
		m.showGroupDialog()
	})
	addGroupBtn.Importance = widget.LowImportance

	editBtn := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() {
		if m.selectedHost != nil {
			m.showHostDialog(m.selectedHost)
		}
	})
	editBtn.Importance = widget.LowImportance

	probeBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		m.refreshProbes()
		m.agentMon.Refresh()
	})
	probeBtn.Importance = widget.LowImportance

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		GetSettings().ShowSettingsDialog(m.window)
	})
	settingsBtn.Importance = widget.LowImportance

	buttons := container.NewHBox(addHostBtn, addGroupBtn, editBtn, probeBtn, settingsBtn)
	return container.NewBorder(nil, nil, title, buttons)
}

func (m *HostManager) buildSidebarFooter() fyne.CanvasObject {
	connectBtn := widget.NewButton("Connect", func() {
		if m.selectedHost != nil {
			m.ConnectHost(*m.selectedHost)
		}
	})
	connectBtn.Importance = widget.HighImportance

	sshImportBtn := widget.NewButton("Import SSH Config", func() { m.showSSHImportDialog() })
	importBtn := widget.NewButton("Import", func() { m.showImportDialog() })
	exportBtn := widget.NewButton("Export", func() { m.showExportDialog() })

	return container.NewVBox(
		sshImportBtn,
		container.NewGridWithColumns(2, importBtn, exportBtn),
		container.NewPadded(connectBtn),
	)
}

// setupKeyboardCapture forwards window-level keys to the active terminal
func (m *HostManager) setupKeyboardCapture() {
	m.window.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		if key.Name == fyne.KeyF11 {
			m.window.SetFullScreen(!m.window.FullScreen())
			m.syncWindowState()
			return
		}
		if m.window.Canvas().Focused() == m.searchEntry {
			return
		}
		surface := m.activeSurface()
		if surface == nil {
			return
		}
		if m.window.Canvas().Focused() != surface {
			m.window.Canvas().Focus(surface)
		}
		surface.TypedKey(key)
	})

	m.window.Canvas().SetOnTypedRune(func(r rune) {
		if m.window.Canvas().Focused() == m.searchEntry {
			return
		}
		surface := m.activeSurface()
		if surface == nil {
			return
		}
		if m.window.Canvas().Focused() != surface {
			m.window.Canvas().Focus(surface)
		}
		surface.TypedRune(r)
	})
}

// syncWindowState re-syncs the visible terminal after fullscreen toggles
func (m *HostManager) syncWindowState() {
	selected := m.tabContainer.Selected()
	for _, tab := range m.activeTabs {
		if tab.TabItem == selected {
			tab.RequestWindowStateSync()
		}
	}
}

func (m *HostManager) activeSurface() *TerminalSurface {
	selected := m.tabContainer.Selected()
	if selected == nil {
		return nil
	}
	for _, tab := range m.activeTabs {
		if tab.TabItem == selected {
			return tab.Surface()
		}
	}
	return nil
}

// ConnectHost opens a new tab and starts a session
func (m *HostManager) ConnectHost(host model.Host) {
	tab := NewTerminalTab(m.loop, host)
	baseName := host.DisplayLabel()

	duplicates := 0
	for _, t := range m.activeTabs {
		if t.Host.ID == host.ID {
			duplicates++
		}
	}
	if duplicates > 0 {
		baseName = fmt.Sprintf("%s (%d)", baseName, duplicates+1)
	}
	tab.TabItem.Text = baseName

	tab.OnStateChange = func(state string) {
		switch state {
		case session.StateConnecting:
			tab.TabItem.Text = fmt.Sprintf("%s (connecting...)", baseName)
		case session.StateConnected:
			tab.TabItem.Text = baseName
			m.window.Canvas().Focus(tab.Surface())
		case session.StateClosing:
			tab.TabItem.Text = fmt.Sprintf("%s (closing...)", baseName)
		case session.StateError:
			tab.TabItem.Text = fmt.Sprintf("%s (error)", baseName)
		}
		m.tabContainer.Refresh()
		m.tree.Refresh()
	}

	tab.OnClosed = func(reason string) {
		log.Printf("Session closed for %s: %s", baseName, reason)
		if m.closingTabs[tab.ID] {
			delete(m.closingTabs, tab.ID)
			delete(m.activeTabs, tab.ID)
			m.tabContainer.Remove(tab.TabItem)
		} else {
			tab.TabItem.Text = fmt.Sprintf("%s (closed)", baseName)
		}
		m.tabContainer.Refresh()
		m.tree.Refresh()
	}

	m.activeTabs[tab.ID] = tab
	m.tabContainer.Append(tab.TabItem)
	m.tabContainer.Select(tab.TabItem)
	m.updateTabVisibility()

	tab.Connect()
}

// updateTabVisibility suspends geometry work on hidden tabs
func (m *HostManager) updateTabVisibility() {
	selected := m.tabContainer.Selected()
	for _, tab := range m.activeTabs {
		tab.SetVisible(tab.TabItem == selected)
	}
	if surface := m.activeSurface(); surface != nil {
		m.window.Canvas().Focus(surface)
	}
}

// handleTabClose confirms before tearing down a live session
func (m *HostManager) handleTabClose(item *container.TabItem) {
	var target *TerminalTab
	for _, tab := range m.activeTabs {
		if tab.TabItem == item {
			target = tab
			break
		}
	}
	if target == nil {
		m.tabContainer.Remove(item)
		return
	}

	if !target.Alive() {
		delete(m.activeTabs, target.ID)
		m.tabContainer.Remove(item)
		m.tree.Refresh()
		return
	}

	if !GetSettings().Get().ConfirmOnClose {
		m.closingTabs[target.ID] = true
		target.Disconnect("user_disconnect")
		return
	}

	dialog.ShowConfirm(
		"Close Session",
		fmt.Sprintf("Close session '%s'?\n\n%s", target.Host.DisplayLabel(), target.Host.Endpoint()),
		func(confirmed bool) {
			if !confirmed {
				return
			}
			m.closingTabs[target.ID] = true
			target.Disconnect("user_disconnect")
		},
		m.window,
	)
}

// ActiveSessionCount reports how many tabs hold a live session
func (m *HostManager) ActiveSessionCount() int {
	count := 0
	for _, tab := range m.activeTabs {
		if tab.Alive() {
			count++
		}
	}
	return count
}

// DisconnectAll force-closes every session, used on application exit
func (m *HostManager) DisconnectAll() {
	for _, tab := range m.activeTabs {
		if tab.Alive() {
			tab.ForceClose("app_quit")
		}
	}
	log.Printf("All sessions closed")
}

// ApplyTheme pushes a theme change into every open tab
func (m *HostManager) ApplyTheme(theme term.Theme) {
	for _, tab := range m.activeTabs {
		tab.ApplyTheme(theme)
	}
}

// refreshProbes runs a reachability pass over every known host
func (m *HostManager) refreshProbes() {
	var targets []probe.Target
	for _, hosts := range m.hostsByGroup {
		for _, h := range hosts {
			if h.Endpoint() == "" {
				continue
			}
			targets = append(targets, probe.Target{
				HostID:   h.ID,
				Hostname: h.Endpoint(),
				Port:     h.Port,
			})
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].HostID < targets[j].HostID })

	m.prober.Run(targets, func(r probe.Result) {
		up := r.Reachable
		m.reachable[r.HostID] = &up
		m.tree.Refresh()
	})
}

func (m *HostManager) handleAgentSnapshot(snap agent.Snapshot) {
	switch snap.State {
	case agent.StateOKKeys:
		m.agentLabel.SetText(fmt.Sprintf("agent: %d keys", len(snap.Keys)))
	case agent.StateOKNoKeys:
		m.agentLabel.SetText("agent: no keys")
	case agent.StateError:
		m.agentLabel.SetText("agent: error")
	default:
		if snap.DetectedWhileOff {
			m.agentLabel.SetText("agent: off (detected)")
		} else {
			m.agentLabel.SetText("agent: off")
		}
	}
}
