// Package overlay loads the user's ignore list and alias file and applies
// them to freshly parsed records.
package overlay

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/goccy/go-json"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/candidate"
)

// IgnoreList matches entry names against lowercase glob patterns.
type IgnoreList struct {
	patterns []glob.Glob
}

// LoadIgnore reads one glob per line. A missing file is an empty list.
// Lines that do not compile are skipped.
func LoadIgnore(path string) (*IgnoreList, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &IgnoreList{}, nil
	}
	if err != nil {
		return nil, apperr.FileRead(path, err)
	}
	return ParseIgnore(data), nil
}

func ParseIgnore(data []byte) *IgnoreList {
	l := &IgnoreList{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		g, err := glob.Compile(strings.ToLower(line))
		if err != nil {
			continue
		}
		l.patterns = append(l.patterns, g)
	}
	return l
}

// Ignored reports whether name matches any pattern, ignoring case.
func (l *IgnoreList) Ignored(name string) bool {
	if l == nil || len(l.patterns) == 0 {
		return false
	}
	name = strings.ToLower(name)
	for _, p := range l.patterns {
		if p.Match(name) {
			return true
		}
	}
	return false
}

func (l *IgnoreList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.patterns)
}

// Alias overrides fields of the record whose original name is its key.
type Alias struct {
	Name       *string              `json:"name"`
	Icon       *string              `json:"icon"`
	Exec       *string              `json:"exec"`
	Keywords   *string              `json:"keywords"`
	Actions    []candidate.Action   `json:"actions"`
	AddActions []candidate.Action   `json:"add_actions"`
	Variables  []candidate.Variable `json:"variables"`
}

// Aliases is keyed by the original display name. It is read-only once
// loaded and may be shared by concurrent parsers.
type Aliases map[string]*Alias

// LoadAliases reads the alias file. A missing file yields no aliases.
func LoadAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Aliases{}, nil
	}
	if err != nil {
		return nil, apperr.FileRead(path, err)
	}
	var out Aliases
	if len(bytes.TrimSpace(data)) == 0 {
		return Aliases{}, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.FileParse(path, err)
	}
	if out == nil {
		out = Aliases{}
	}
	return out, nil
}

// ConstructSearch joins name and keywords with ";" and lowercases the
// result. Keywords are left out when useKeywords is false.
func ConstructSearch(name, keywords string, useKeywords bool) string {
	if !useKeywords {
		return strings.ToLower(name)
	}
	return strings.ToLower(name + ";" + keywords)
}

// Apply overlays alias onto rec, or only normalizes the search string when
// alias is nil. rec.SearchString must hold the raw keywords on entry.
func Apply(rec *candidate.Record, alias *Alias, useKeywords bool) {
	if alias == nil {
		rec.SearchString = ConstructSearch(rec.Name, rec.SearchString, useKeywords)
		return
	}

	if alias.Name != nil {
		rec.Name = *alias.Name
	}
	if alias.Icon != nil {
		rec.Icon = *alias.Icon
	}
	keywords := rec.SearchString
	if alias.Keywords != nil {
		keywords = *alias.Keywords
	}
	rec.SearchString = ConstructSearch(rec.Name, keywords, useKeywords)
	if alias.Exec != nil {
		rec.Exec = *alias.Exec
	}

	withIcon := func(a candidate.Action) candidate.Action {
		if a.Icon == "" {
			a.Icon = rec.Icon
		}
		if a.Method == "" {
			a.Method = "app_launcher"
		}
		return a
	}
	for _, a := range alias.AddActions {
		rec.Actions = append(rec.Actions, withIcon(a))
	}
	if alias.Actions != nil {
		actions := make([]candidate.Action, 0, len(alias.Actions))
		for _, a := range alias.Actions {
			actions = append(actions, withIcon(a))
		}
		rec.Actions = actions
	}
	rec.Vars = append(rec.Vars, alias.Variables...)
}
