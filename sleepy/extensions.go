package sleepy

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	ErrExtensionNotFound      = errors.New("extension not found")
	ErrExtensionAlreadyLoaded = errors.New("extension already loaded")
	ErrExtensionNotLoaded     = errors.New("extension not loaded")
)

// Extension is a named feature unit ("cog"): a group of commands and,
// optionally, gateway event handlers, loaded and unloaded together.
type Extension interface {
	// Name returns the extension's display name, e.g. "Meta".
	Name() string

	// Commands returns the commands this extension provides. The
	// returned slice is registered on load and removed on unload.
	Commands() []*Command
}

// HandlerExtension is an optional interface for extensions that also
// attach raw discordgo gateway event handlers. Returned handlers are
// added on load and removed on unload.
type HandlerExtension interface {
	Extension
	Handlers() []any
}

// ExtensionCloser is an optional interface for extensions that hold
// resources needing cleanup on unload.
type ExtensionCloser interface {
	Extension
	Close() error
}

// ExtensionConstructor builds an extension instance for the given bot.
type ExtensionConstructor func(bot *Bot) (Extension, error)

type loadedExtension struct {
	ext            Extension
	commands       []*Command
	removeHandlers []func()
}

// ExtensionManager tracks the registry of known extensions and the
// set currently loaded.
//
// Registered extensions are keyed by a path-like name, e.g.
// "ext/meta". Configuration may refer to them with a `$` alias for
// the configured extensions root, `{a,b}` brace sets, and a trailing
// `/*` wildcard; see [ExtensionManager.ExpandNames].
type ExtensionManager struct {
	bot      *Bot
	logger   *slog.Logger
	root     string
	mu       sync.RWMutex
	registry map[string]ExtensionConstructor
	loaded   map[string]*loadedExtension
}

func newExtensionManager(bot *Bot, root string, logger *slog.Logger) *ExtensionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtensionManager{
		bot:      bot,
		logger:   logger.With(loggerNameKey, "extensions"),
		root:     strings.Trim(root, "/"),
		registry: map[string]ExtensionConstructor{},
		loaded:   map[string]*loadedExtension{},
	}
}

// Register adds an extension constructor to the registry under the
// given path-like name. Registering a name twice is an error.
func (m *ExtensionManager) Register(name string, ctor ExtensionConstructor) error {
	name = strings.Trim(name, "/")
	if name == "" {
		return errors.New("extension name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registry[name]; ok {
		return fmt.Errorf("extension %q already registered", name)
	}
	m.registry[name] = ctor
	return nil
}

// Names returns the sorted names of every registered extension.
func (m *ExtensionManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.registry))
	for name := range m.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loaded returns the sorted names of every loaded extension.
func (m *ExtensionManager) Loaded() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsLoaded reports whether the named extension is currently loaded.
func (m *ExtensionManager) IsLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.loaded[strings.Trim(name, "/")]
	return ok
}

// Get returns the loaded extension instance for the given name.
func (m *ExtensionManager) Get(name string) (Extension, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	le, ok := m.loaded[strings.Trim(name, "/")]
	if !ok {
		return nil, false
	}
	return le.ext, true
}

// ExpandNames resolves a list of configured extension name patterns
// into concrete registered names:
//
//   - a leading `$` expands to the configured extensions root, so
//     "$/meta" resolves to "ext/meta" under the default root
//   - `{a,b}` brace sets expand combinatorially: "$/{meta,fun}"
//   - a trailing `/*` expands to every registered direct child of the
//     prefix, in sorted order
//
// Duplicates after expansion are dropped, first occurrence winning.
// Plain names pass through untouched; they are not checked against
// the registry here (Load reports unknown names).
func (m *ExtensionManager) ExpandNames(patterns []string) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)

	add := func(name string) {
		name = strings.Trim(name, "/")
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	for _, pattern := range patterns {
		for _, expanded := range expandBraces(pattern) {
			if expanded == "$" || strings.HasPrefix(expanded, "$/") {
				expanded = m.root + strings.TrimPrefix(expanded, "$")
			}

			if rest, ok := strings.CutSuffix(expanded, "/*"); ok {
				for _, child := range m.childrenOf(rest) {
					add(child)
				}
				continue
			}

			add(expanded)
		}
	}
	return out
}

// childrenOf returns the sorted registered names that are direct
// children of the given prefix.
func (m *ExtensionManager) childrenOf(prefix string) []string {
	prefix = strings.Trim(prefix, "/") + "/"

	m.mu.RLock()
	defer m.mu.RUnlock()

	var children []string
	for name := range m.registry {
		rest, ok := strings.CutPrefix(name, prefix)
		if ok && !strings.Contains(rest, "/") {
			children = append(children, name)
		}
	}
	sort.Strings(children)
	return children
}

// expandBraces expands `{a,b}` sets in a pattern. Multiple sets
// expand combinatorially; nested sets expand innermost-first.
func expandBraces(pattern string) []string {
	open := strings.IndexByte(pattern, '{')
	if open < 0 {
		return []string{pattern}
	}

	depth := 0
	for i := open; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var out []string
				for _, option := range splitTopLevel(pattern[open+1:i]) {
					expanded := pattern[:open] + option + pattern[i+1:]
					out = append(out, expandBraces(expanded)...)
				}
				return out
			}
		}
	}

	// Unbalanced brace; treat as a literal.
	return []string{pattern}
}

// splitTopLevel splits on commas not nested inside braces.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// Load constructs and installs the named extension: its commands are
// added to the router and any gateway handlers are attached. Loading
// an unknown or already-loaded name is an error. A failure part-way
// through rolls back anything already installed.
func (m *ExtensionManager) Load(name string) error {
	name = strings.Trim(name, "/")

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.loaded[name]; ok {
		return fmt.Errorf("%w: %q", ErrExtensionAlreadyLoaded, name)
	}
	ctor, ok := m.registry[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrExtensionNotFound, name)
	}

	ext, err := ctor(m.bot)
	if err != nil {
		return fmt.Errorf("error constructing extension %q: %w", name, err)
	}

	le, err := m.installLocked(ext)
	if err != nil {
		return fmt.Errorf("error loading extension %q: %w", name, err)
	}

	m.loaded[name] = le
	m.logger.Info("loaded extension", "extension", name)
	return nil
}

// installLocked adds an extension's commands to the router and attaches
// its gateway handlers. A failure part-way through rolls back anything
// already installed. Callers must hold m.mu.
func (m *ExtensionManager) installLocked(ext Extension) (*loadedExtension, error) {
	le := &loadedExtension{ext: ext}

	for _, cmd := range ext.Commands() {
		cmd.Extension = ext.Name()
		if err := m.bot.router.AddCommand(cmd); err != nil {
			m.uninstallLocked(le)
			return nil, err
		}
		le.commands = append(le.commands, cmd)
	}

	if he, ok := ext.(HandlerExtension); ok {
		for _, handler := range he.Handlers() {
			le.removeHandlers = append(
				le.removeHandlers,
				m.bot.discord.session.AddHandler(handler),
			)
		}
	}

	return le, nil
}

// uninstallLocked removes an installed extension's commands and
// handlers. Callers must hold m.mu.
func (m *ExtensionManager) uninstallLocked(le *loadedExtension) {
	for _, cmd := range le.commands {
		m.bot.router.RemoveCommand(cmd.Name)
	}
	for _, remove := range le.removeHandlers {
		remove()
	}
}

// Unload removes the named extension's commands and handlers and, if
// the extension implements [ExtensionCloser], closes it.
func (m *ExtensionManager) Unload(name string) error {
	name = strings.Trim(name, "/")

	m.mu.Lock()
	defer m.mu.Unlock()

	le, ok := m.loaded[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrExtensionNotLoaded, name)
	}

	m.uninstallLocked(le)

	var err error
	if closer, ok := le.ext.(ExtensionCloser); ok {
		err = closer.Close()
	}

	delete(m.loaded, name)
	m.logger.Info("unloaded extension", "extension", name)
	return err
}

// UnloadAll unloads every loaded extension, collecting any errors.
func (m *ExtensionManager) UnloadAll() []error {
	var errs []error
	for _, name := range m.Loaded() {
		if err := m.Unload(name); err != nil {
			errs = append(errs, fmt.Errorf("unloading %q: %w", name, err))
		}
	}
	return errs
}

// Reload replaces the named extension with a freshly constructed
// instance. If the replacement cannot be built or installed, the
// previous instance is restored and stays loaded.
func (m *ExtensionManager) Reload(name string) error {
	name = strings.Trim(name, "/")

	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.loaded[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrExtensionNotLoaded, name)
	}
	ctor, ok := m.registry[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrExtensionNotFound, name)
	}

	// Build the replacement before touching the old instance so a
	// constructor failure leaves it untouched.
	ext, err := ctor(m.bot)
	if err != nil {
		return fmt.Errorf("error constructing extension %q: %w", name, err)
	}

	m.uninstallLocked(old)

	le, err := m.installLocked(ext)
	if err != nil {
		if restored, rerr := m.installLocked(old.ext); rerr == nil {
			m.loaded[name] = restored
		} else {
			delete(m.loaded, name)
			m.logger.Error(
				"error restoring extension after failed reload",
				"extension", name,
				tint.Err(rerr),
			)
		}
		return fmt.Errorf("error reloading extension %q: %w", name, err)
	}

	if closer, ok := old.ext.(ExtensionCloser); ok {
		if cerr := closer.Close(); cerr != nil {
			m.logger.Warn(
				"error closing replaced extension",
				"extension", name,
				tint.Err(cerr),
			)
		}
	}

	m.loaded[name] = le
	m.logger.Info("reloaded extension", "extension", name)
	return nil
}
