package desktop

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/candidate"
)

const mainSection = "Desktop Entry"

// ErrSkipped is returned for entries that must not be indexed: NoDisplay,
// Hidden, or a name matched by the ignore list.
var ErrSkipped = errors.New("desktop entry skipped")

// Ignorer decides whether an entry name is on the ignore list.
type Ignorer interface {
	Ignored(name string) bool
}

// Parse reads a single .desktop file into a record. The record's
// SearchString holds the lowercased Keywords value; the overlay turns it
// into the final search string.
func Parse(path string, ignore Ignorer) (*candidate.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperr.FileRead(path, err)
	}
	defer file.Close()

	rec := &candidate.Record{Origin: path}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		section   string
		inSection bool
		action    candidate.Action
	)
	newAction := func() candidate.Action {
		return candidate.Action{Method: "app_launcher", Exit: true}
	}
	action = newAction()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			inSection = true
			if action.Valid() {
				rec.Actions = append(rec.Actions, action)
			}
			action = newAction()
			continue
		}

		if !inSection {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if section == mainSection {
			switch key {
			case "name":
				if ignore != nil && ignore.Ignored(value) {
					return nil, ErrSkipped
				}
				rec.Name = value
			case "icon":
				rec.Icon = value
			case "exec":
				rec.Exec = value
			case "nodisplay", "hidden":
				if strings.EqualFold(value, "true") {
					return nil, ErrSkipped
				}
			case "terminal":
				rec.Terminal = strings.EqualFold(value, "true")
			case "keywords":
				rec.SearchString = strings.ToLower(value)
			}
			continue
		}

		switch key {
		case "name":
			action.Name = value
		case "exec":
			action.Exec = value
		case "icon":
			action.Icon = value
		}
		if action.Full() {
			rec.Actions = append(rec.Actions, action)
			action = newAction()
			inSection = false
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, apperr.FileRead(path, err)
	}

	if rec.Name == "" && rec.Exec == "" {
		return nil, apperr.FileParse(path, fmt.Errorf("missing required fields"))
	}
	if rec.Name == "" {
		rec.Name = strings.TrimSuffix(filepath.Base(path), ".desktop")
	}

	for i := range rec.Actions {
		if rec.Actions[i].Icon == "" {
			rec.Actions[i].Icon = rec.Icon
		}
	}

	return rec, nil
}

// ExpandExec expands %-codes in an Exec command. arg replaces the file and
// URL codes.
func ExpandExec(exec, name, origin, arg string) string {
	exec = strings.ReplaceAll(exec, "%f", arg)
	exec = strings.ReplaceAll(exec, "%F", arg)
	exec = strings.ReplaceAll(exec, "%u", arg)
	exec = strings.ReplaceAll(exec, "%U", arg)
	exec = strings.ReplaceAll(exec, "%i", "")
	exec = strings.ReplaceAll(exec, "%c", name)
	exec = strings.ReplaceAll(exec, "%k", origin)

	return CleanExecCommand(exec)
}

func removeFieldCodes(s string) string {
	var result strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '%' && i+1 < len(s) {
			next := s[i+1]
			if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') || next == '%' {
				if next == '%' {
					result.WriteByte('%')
				}
				i += 2
				continue
			}
		}
		result.WriteByte(s[i])
		i++
	}
	return result.String()
}

// CleanExecCommand removes field codes and extra spaces from exec command
func CleanExecCommand(exec string) string {
	return strings.Join(strings.Fields(removeFieldCodes(exec)), " ")
}
