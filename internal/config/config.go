package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/indexer/desktop"
	"github.com/0xADE/ade-launchd/internal/logging"
)

const (
	rcName        = "launchd.rc"
	appName       = "launchd"
	aliasName     = "alias.json"
	ignoreName    = "ignore"
	launchersName = "launchers.yaml"
	cacheName     = "desktop_files.bin"
	iconDBName    = "icons.db"
	iconDirName   = "icons"

	// DefaultDebounce is the minimum spacing between two reloads.
	DefaultDebounce = 500 * time.Millisecond
)

type (
	env struct {
		Home          string   `envconfig:"HOME"`
		Path          string   `envconfig:"PATH"`
		XDGConfigHome string   `envconfig:"XDG_CONFIG_HOME"`
		XDGCacheHome  string   `envconfig:"XDG_CACHE_HOME"`
		XDGDataHome   string   `envconfig:"XDG_DATA_HOME"`
		XDGDataDirs   string   `envconfig:"XDG_DATA_DIRS"`
		Terminal      string   `envconfig:"ADE_DEFAULT_TERM"`
		UnixSocket    string   `envconfig:"ADE_LAUNCHD_SOCK"`
		Workers       int      `envconfig:"ADE_LAUNCHD_WORKERS" default:"4"`
		ListLimit     int      `envconfig:"ADE_LAUNCHD_LIST_LIMIT" default:"128"`
		AppPaths      []string `envconfig:"ADE_LAUNCHD_APP_PATHS"`
		IconPaths     []string `envconfig:"ADE_LAUNCHD_ICON_PATHS"`
		MetricsAddr   string   `envconfig:"ADE_LAUNCHD_METRICS_ADDR"`
		LogLevel      string   `envconfig:"ADE_LAUNCHD_LOG_LEVEL" default:"info"`
	}
	rc struct {
		sync.RWMutex
		appDirs []string
	}
)

// Config is the daemon configuration: the environment read once at start
// and the rc file, which is reloaded whenever it changes.
type Config struct {
	static  env
	dynamic rc

	configDir string
	cacheDir  string
	dataDir   string
}

// Load reads the environment and the rc file.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", &c.static); err != nil {
		return nil, apperr.Config(err.Error())
	}
	if c.static.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, apperr.Config("HOME is not set")
		}
		c.static.Home = home
	}

	c.configDir = filepath.Join(xdg(c.static.XDGConfigHome, c.static.Home, ".config"), "ade")
	c.cacheDir = filepath.Join(xdg(c.static.XDGCacheHome, c.static.Home, ".cache"), "ade", appName)
	c.dataDir = filepath.Join(xdg(c.static.XDGDataHome, c.static.Home, ".local/share"), "ade", appName)

	if c.static.UnixSocket == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("failed to get current user: %w", err)
		}
		c.static.UnixSocket = fmt.Sprintf("/tmp/ade-%s/launchd", u.Uid)
	}
	c.static.UnixSocket = c.expand(c.static.UnixSocket)

	if err := c.ReloadRC(); err != nil {
		return nil, err
	}
	return c, nil
}

func xdg(value, home, fallback string) string {
	if value != "" {
		return value
	}
	return filepath.Join(home, fallback)
}

// ReloadRC rereads the rc file. Every non-empty line that is not a
// comment names an extra application directory. A missing file is
// created empty.
func (c *Config) ReloadRC() error {
	rcPath := c.RCFile()
	if err := os.MkdirAll(filepath.Dir(rcPath), 0o750); err != nil {
		return apperr.DirCreate(filepath.Dir(rcPath), err)
	}

	file, err := os.Open(rcPath)
	if errors.Is(err, fs.ErrNotExist) {
		file, err = os.Create(rcPath)
		if err != nil {
			return apperr.FileWrite(rcPath, err)
		}
		file.Close()
		c.setAppDirs(nil)
		return nil
	}
	if err != nil {
		return apperr.FileRead(rcPath, err)
	}
	defer file.Close()

	var dirs []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dirs = append(dirs, c.expand(line))
	}
	if err := scanner.Err(); err != nil {
		return apperr.FileRead(rcPath, err)
	}
	c.setAppDirs(dirs)
	return nil
}

func (c *Config) setAppDirs(dirs []string) {
	c.dynamic.Lock()
	c.dynamic.appDirs = dirs
	c.dynamic.Unlock()
}

// Watch reloads the rc file and calls onChange whenever a file in the
// configuration directories changes. Bursts of events are coalesced and
// reloads are spaced at least debounce apart. It returns when ctx is done.
func (c *Config) Watch(ctx context.Context, debounce time.Duration, log *logging.Logger, onChange func()) error {
	log = log.OrNoop().Component("config")
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{c.configDir, c.ConfigDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return apperr.DirCreate(dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	watched := map[string]bool{
		c.RCFile():        true,
		c.AliasFile():     true,
		c.IgnoreFile():    true,
		c.LaunchersFile(): true,
	}

	limiter := rate.NewLimiter(rate.Every(debounce), 1)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] || event.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("config file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case <-timer.C:
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := c.ReloadRC(); err != nil {
				log.Warn("failed to reload rc file", "error", err)
			}
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "error", err)
		}
	}
}

// ConfigDir holds the alias, ignore and launchers files.
func (c *Config) ConfigDir() string  { return filepath.Join(c.configDir, appName) }
func (c *Config) CacheDir() string   { return c.cacheDir }
func (c *Config) DataDir() string    { return c.dataDir }
func (c *Config) RCFile() string     { return filepath.Join(c.configDir, rcName) }
func (c *Config) AliasFile() string  { return filepath.Join(c.ConfigDir(), aliasName) }
func (c *Config) IgnoreFile() string { return filepath.Join(c.ConfigDir(), ignoreName) }
func (c *Config) LaunchersFile() string {
	return filepath.Join(c.ConfigDir(), launchersName)
}
func (c *Config) DesktopCacheFile() string { return filepath.Join(c.cacheDir, cacheName) }
func (c *Config) IconDB() string           { return filepath.Join(c.cacheDir, iconDBName) }
func (c *Config) IconCacheDir() string     { return filepath.Join(c.cacheDir, iconDirName) }

// ApplicationDirs returns the desktop manifest directories in precedence
// order: system, local, XDG data dirs, ADE_LAUNCHD_APP_PATHS, then the rc
// file.
func (c *Config) ApplicationDirs() []string {
	c.dynamic.RLock()
	extra := append(slices.Clone(c.static.AppPaths), c.dynamic.appDirs...)
	c.dynamic.RUnlock()

	return desktop.Dirs(c.static.Home, c.static.XDGDataDirs, extra)
}

// LocalApplicationsDir is the per-user manifest directory, which overrides
// every other one.
func (c *Config) LocalApplicationsDir() string {
	return desktop.LocalDir(c.static.Home)
}

// Path returns the non-empty PATH entries.
func (c *Config) Path() []string {
	paths := strings.Split(c.static.Path, ":")
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// IconPaths returns the icon theme roots to search, user paths first.
func (c *Config) IconPaths() []string {
	paths := make([]string, 0, len(c.static.IconPaths)+4)
	for _, p := range c.static.IconPaths {
		paths = append(paths, c.expand(p))
	}
	return append(paths,
		filepath.Join(c.static.Home, ".local/share/icons"),
		filepath.Join(c.static.Home, ".icons"),
		"/usr/share/icons",
		"/usr/share/pixmaps",
	)
}

// Terminal returns the default terminal command
func (c *Config) Terminal() string {
	if c.static.Terminal != "" {
		return c.static.Terminal
	}
	if term := os.Getenv("TERM"); term != "" {
		return term
	}
	return "xterm"
}

func (c *Config) UnixSocket() string  { return c.static.UnixSocket }
func (c *Config) MetricsAddr() string { return c.static.MetricsAddr }
func (c *Config) LogLevel() string    { return c.static.LogLevel }

// Workers returns the number of worker goroutines for indexing and search.
func (c *Config) Workers() int {
	if c.static.Workers <= 0 {
		return 4
	}
	return c.static.Workers
}

// ListLimit returns the configured list limit
func (c *Config) ListLimit() int {
	if c.static.ListLimit <= 0 {
		return 128
	}
	return c.static.ListLimit
}

func (c *Config) expand(path string) string {
	if strings.HasPrefix(path, "~") {
		return strings.Replace(path, "~", c.static.Home, 1)
	}
	return path
}
