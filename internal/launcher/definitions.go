package launcher

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xADE/ade-launchd/internal/apperr"
	"github.com/0xADE/ade-launchd/internal/candidate"
)

// Definition is one entry of launchers.yaml.
type Definition struct {
	Name        string             `yaml:"name"`
	Alias       string             `yaml:"alias"`
	DisplayName string             `yaml:"display_name"`
	Type        string             `yaml:"type"`
	Priority    float32            `yaml:"priority"`
	Home        string             `yaml:"home"`
	Exit        *bool              `yaml:"exit"`
	OnReturn    string             `yaml:"on_return"`
	Args        Args               `yaml:"args"`
}

// Args holds the type specific settings of a launcher.
type Args struct {
	UseKeywords  *bool              `yaml:"use_keywords"`
	Icon         string             `yaml:"icon"`
	SearchEngine string             `yaml:"search_engine"`
	Commands     map[string]Command `yaml:"commands"`
}

// Command is a named entry of a command launcher.
type Command struct {
	Exec         string `yaml:"exec"`
	Icon         string `yaml:"icon"`
	SearchString string `yaml:"search_string"`
	Terminal     bool   `yaml:"terminal"`
}

func (d Definition) home() (candidate.HomeType, error) {
	var h candidate.HomeType
	err := h.UnmarshalText([]byte(strings.ToLower(d.Home)))
	return h, err
}

func (d Definition) exit() bool { return d.Exit == nil || *d.Exit }

func (d Definition) useKeywords() bool {
	return d.Args.UseKeywords == nil || *d.Args.UseKeywords
}

func (d Definition) method() string {
	if d.OnReturn != "" {
		return d.OnReturn
	}
	return strings.ToLower(d.Type)
}

// Defaults is used when no launchers file exists: desktop applications in
// the universal mode and PATH executables behind the "exe" mode.
func Defaults() []Definition {
	return []Definition{
		{Name: "App Launcher", DisplayName: "Apps", Type: "app_launcher", Priority: 1},
		{Name: "Executables", Alias: "exe", DisplayName: "Executable", Type: "executables", Priority: 5},
	}
}

// LoadDefinitions reads the launchers file. A missing file yields Defaults.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, apperr.FileRead(path, err)
	}

	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, apperr.FileParse(path, err)
	}
	return defs, nil
}
