// settings.go - Application settings persisted as YAML under the app home
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"shelldeck/internal/sshcmd"
)

// AppSettings holds every user-tunable knob
type AppSettings struct {
	DarkMode       bool    `yaml:"dark_mode"`
	FontSize       float32 `yaml:"font_size"`
	ScrollbackSize int     `yaml:"scrollback_size"`
	SSHConfigPath  string  `yaml:"ssh_config_path"`
	SSHDebug       bool    `yaml:"ssh_debug"`
	UseAgent       bool    `yaml:"use_agent"`
	ConfirmOnClose bool    `yaml:"confirm_on_close"`
	WindowWidth    float32 `yaml:"window_width"`
	WindowHeight   float32 `yaml:"window_height"`
}

// DefaultSettings returns settings for a fresh install
func DefaultSettings() AppSettings {
	return AppSettings{
		DarkMode:       true,
		FontSize:       13.0,
		ScrollbackSize: 1000,
		SSHConfigPath:  sshcmd.DefaultConfigPath(),
		SSHDebug:       false,
		UseAgent:       true,
		ConfirmOnClose: true,
		WindowWidth:    1200,
		WindowHeight:   800,
	}
}

// SettingsManager loads and saves settings, guarding concurrent access
type SettingsManager struct {
	mu       sync.RWMutex
	path     string
	settings AppSettings
	onChange func(AppSettings)
}

var (
	settingsOnce   sync.Once
	globalSettings *SettingsManager
)

// GetSettings returns the singleton settings manager
func GetSettings() *SettingsManager {
	settingsOnce.Do(func() {
		globalSettings = NewSettingsManager(GetSettingsPath())
		globalSettings.Load()
	})
	return globalSettings
}

func NewSettingsManager(path string) *SettingsManager {
	return &SettingsManager{
		path:     path,
		settings: DefaultSettings(),
	}
}

// Load reads settings from disk, keeping defaults on any failure
func (m *SettingsManager) Load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Could not read settings file %s: %v", m.path, err)
		}
		return
	}

	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		log.Printf("Warning: Malformed settings file %s: %v", m.path, err)
		return
	}

	if loaded.FontSize < 8 || loaded.FontSize > 32 {
		loaded.FontSize = 13.0
	}
	if loaded.ScrollbackSize < 100 {
		loaded.ScrollbackSize = 1000
	}

	m.mu.Lock()
	m.settings = loaded
	m.mu.Unlock()
	log.Printf("Loaded settings from %s", m.path)
}

// Save writes the current settings to disk
func (m *SettingsManager) Save() error {
	m.mu.RLock()
	current := m.settings
	m.mu.RUnlock()

	data, err := yaml.Marshal(&current)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Get returns a copy of the current settings
func (m *SettingsManager) Get() AppSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Update replaces the settings, persists them, and notifies the listener
func (m *SettingsManager) Update(s AppSettings) {
	m.mu.Lock()
	m.settings = s
	onChange := m.onChange
	m.mu.Unlock()

	if err := m.Save(); err != nil {
		log.Printf("Error saving settings: %v", err)
	}
	if onChange != nil {
		onChange(s)
	}
}

// OnChange registers a single listener fired after every Update
func (m *SettingsManager) OnChange(fn func(AppSettings)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// ShowSettingsDialog opens the tabbed settings editor
func (m *SettingsManager) ShowSettingsDialog(window fyne.Window) {
	current := m.Get()

	darkCheck := widget.NewCheck("Dark mode", nil)
	darkCheck.SetChecked(current.DarkMode)

	fontEntry := widget.NewEntry()
	fontEntry.SetText(fmt.Sprintf("%.0f", current.FontSize))

	scrollbackEntry := widget.NewEntry()
	scrollbackEntry.SetText(strconv.Itoa(current.ScrollbackSize))

	confirmCheck := widget.NewCheck("Confirm before closing active sessions", nil)
	confirmCheck.SetChecked(current.ConfirmOnClose)

	appearanceTab := widget.NewForm(
		widget.NewFormItem("", darkCheck),
		widget.NewFormItem("Font size", fontEntry),
		widget.NewFormItem("Scrollback lines", scrollbackEntry),
		widget.NewFormItem("", confirmCheck),
	)

	configEntry := widget.NewEntry()
	configEntry.SetText(current.SSHConfigPath)

	debugCheck := widget.NewCheck("Verbose ssh output (-vvv)", nil)
	debugCheck.SetChecked(current.SSHDebug)

	agentCheck := widget.NewCheck("Use ssh-agent", nil)
	agentCheck.SetChecked(current.UseAgent)

	sshTab := widget.NewForm(
		widget.NewFormItem("Config file", configEntry),
		widget.NewFormItem("", debugCheck),
		widget.NewFormItem("", agentCheck),
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Appearance", appearanceTab),
		container.NewTabItem("SSH", sshTab),
	)

	d := dialog.NewCustomConfirm("Settings", "Save", "Cancel", tabs,
		func(confirmed bool) {
			if !confirmed {
				return
			}

			next := current
			next.DarkMode = darkCheck.Checked
			next.ConfirmOnClose = confirmCheck.Checked
			next.SSHConfigPath = configEntry.Text
			next.SSHDebug = debugCheck.Checked
			next.UseAgent = agentCheck.Checked

			if v, err := strconv.ParseFloat(fontEntry.Text, 32); err == nil && v >= 8 && v <= 32 {
				next.FontSize = float32(v)
			}
			if v, err := strconv.Atoi(scrollbackEntry.Text); err == nil && v >= 100 {
				next.ScrollbackSize = v
			}

			m.Update(next)
			log.Printf("Settings updated")
		},
		window,
	)
	d.Resize(fyne.NewSize(480, 360))
	d.Show()
}
