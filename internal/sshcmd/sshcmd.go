// Package sshcmd builds the ssh invocation for a stored host. It merges
// the host record with the user's ssh client configuration and renders a
// shell-safe display string. Resolution never fails: a missing or broken
// config file just contributes nothing.
package sshcmd

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/kevinburke/ssh_config"

	"shelldeck/internal/model"
)

// DefaultConfigPath is where the client configuration is looked up when
// the caller does not pass an explicit path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "config")
}

// Options is what the ssh client configuration contributes for one
// hostname. Empty fields mean the config has no opinion.
type Options struct {
	User         string
	Port         int
	IdentityFile string
}

// Command is the resolved invocation for one connect attempt. Built
// fresh on every (re)connect, never mutated afterwards.
type Command struct {
	Argv    []string
	Display string

	Target       string
	User         string
	Port         int
	IdentityFile string
	ConfigAlias  string
}

// Resolver turns host records into Commands. The zero value uses the
// default config path and no debug flags.
type Resolver struct {
	ConfigPath string
	Debug      bool
	Logger     *log.Logger
}

func (r Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// LookupOptions reads the ssh client configuration and returns what it
// says about host. Any read or parse failure degrades to empty Options.
func (r Resolver) LookupOptions(host string) Options {
	path := r.ConfigPath
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" || strings.TrimSpace(host) == "" {
		return Options{}
	}

	f, err := os.Open(path)
	if err != nil {
		return Options{}
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		r.logger().Printf("ssh config %s unreadable, ignoring: %v", path, err)
		return Options{}
	}

	var opts Options
	if v, err := cfg.Get(host, "User"); err == nil {
		opts.User = strings.TrimSpace(v)
	}
	if v, err := cfg.Get(host, "Port"); err == nil && strings.TrimSpace(v) != "" {
		if p, perr := strconv.Atoi(strings.TrimSpace(v)); perr == nil {
			opts.Port = p
		}
	}
	if v, err := cfg.Get(host, "IdentityFile"); err == nil {
		opts.IdentityFile = strings.TrimSpace(v)
	}
	return opts
}

// Resolve produces the Command for host.
//
// A config alias delegates everything to the ssh client: the invocation
// is just "ssh -tt <alias>" and the host's explicit user/port/identity
// fields do not contribute options. Otherwise each option follows
// explicit value, then config lookup, then absent; the default port is
// only filled in at argv-build time.
func (r Resolver) Resolve(host model.Host) Command {
	argv := []string{"ssh", "-tt"}
	if r.Debug {
		argv = append(argv, "-vvv")
	}

	if alias := strings.TrimSpace(host.ConfigAlias); alias != "" {
		argv = append(argv, alias)
		return Command{
			Argv:        argv,
			Display:     shellquote.Join(argv...),
			Target:      alias,
			ConfigAlias: alias,
		}
	}

	target := strings.TrimSpace(host.Hostname)
	opts := r.LookupOptions(target)

	user := strings.TrimSpace(host.Username)
	if user == "" {
		user = opts.User
	}
	port := host.Port
	if port == 0 {
		port = opts.Port
	}
	identity := strings.TrimSpace(host.IdentityFile)
	if identity == "" {
		identity = opts.IdentityFile
	}
	identity = ExpandUser(identity)

	if port != 0 {
		argv = append(argv, "-p", strconv.Itoa(port))
	}
	if user != "" {
		argv = append(argv, "-l", user)
	}
	if identity != "" {
		argv = append(argv, "-i", identity)
	}
	argv = append(argv, target)

	return Command{
		Argv:         argv,
		Display:      shellquote.Join(argv...),
		Target:       target,
		User:         user,
		Port:         port,
		IdentityFile: identity,
	}
}

// Entry is one concrete Host block from the ssh client configuration,
// resolved for import into the inventory. Hostname falls back to the
// alias when the block carries no HostName directive.
type Entry struct {
	Alias        string
	Hostname     string
	User         string
	Port         int
	IdentityFile string
	ProxyJump    string
}

// ListEntries returns the concrete host entries of the ssh client
// configuration, sorted by alias. Pattern aliases (*, ?, negations)
// are skipped. A missing or unreadable config yields no entries, same
// leniency as LookupOptions.
func (r Resolver) ListEntries() []Entry {
	path := r.ConfigPath
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		r.logger().Printf("ssh config %s unreadable, ignoring: %v", path, err)
		return nil
	}

	seen := map[string]bool{}
	var aliases []string
	for _, h := range cfg.Hosts {
		for _, p := range h.Patterns {
			alias := p.String()
			if isPatternAlias(alias) || seen[alias] {
				continue
			}
			seen[alias] = true
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)

	entries := make([]Entry, 0, len(aliases))
	for _, alias := range aliases {
		e := Entry{Alias: alias, Hostname: alias}
		if v, err := cfg.Get(alias, "HostName"); err == nil && strings.TrimSpace(v) != "" {
			e.Hostname = strings.TrimSpace(v)
		}
		if v, err := cfg.Get(alias, "User"); err == nil {
			e.User = strings.TrimSpace(v)
		}
		if v, err := cfg.Get(alias, "Port"); err == nil && strings.TrimSpace(v) != "" {
			if p, perr := strconv.Atoi(strings.TrimSpace(v)); perr == nil {
				e.Port = p
			}
		}
		if v, err := cfg.Get(alias, "IdentityFile"); err == nil && strings.TrimSpace(v) != "" {
			e.IdentityFile = ExpandUser(strings.TrimSpace(v))
		}
		if v, err := cfg.Get(alias, "ProxyJump"); err == nil {
			e.ProxyJump = strings.TrimSpace(v)
		}
		entries = append(entries, e)
	}
	return entries
}

func isPatternAlias(alias string) bool {
	return alias == "" || strings.ContainsAny(alias, "*?") || strings.HasPrefix(alias, "!")
}

// ExpandUser resolves a leading ~ or ~/ to the current home directory.
func ExpandUser(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~\\") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// IdentityFileFromArgv extracts the identity file from a built argv,
// handling both "-i path" and "-ipath" forms. Returns "" when the
// invocation carries none.
func IdentityFileFromArgv(argv []string) string {
	for i, arg := range argv {
		if arg == "-i" {
			if i+1 < len(argv) {
				return argv[i+1]
			}
			return ""
		}
		if strings.HasPrefix(arg, "-i") && len(arg) > 2 {
			return arg[2:]
		}
	}
	return ""
}
