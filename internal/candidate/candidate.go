package candidate

import "strings"

// Kind is the launcher type a candidate was produced by.
type Kind uint8

const (
	App Kind = iota
	Command
	Executables
	Web
	Calc
)

func (k Kind) String() string {
	switch k {
	case App:
		return "app_launcher"
	case Command:
		return "command"
	case Executables:
		return "executables"
	case Web:
		return "web_launcher"
	case Calc:
		return "calculation"
	}
	return "unknown"
}

// ParseKind maps a launcher type name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "app_launcher":
		return App, true
	case "command":
		return Command, true
	case "executables":
		return Executables, true
	case "web_launcher":
		return Web, true
	case "calculation":
		return Calc, true
	}
	return 0, false
}

// Launcher is the metadata every candidate of one launcher shares.
type Launcher struct {
	Name        string
	DisplayName string
	Alias       string
	Kind        Kind
	Priority    float32
	Home        HomeType
	UseKeywords bool
	Icon        string
	Method      string
	Exit        bool
	// Engine is the search URL template of web launchers; {keyword} is
	// replaced by the query.
	Engine string
}

// ShowFunc lets a candidate decide its own visibility from the raw query.
// ok is false when the candidate has no opinion.
type ShowFunc func(query string) (show, ok bool)

// Candidate is an entry of a Snapshot. Record is nil for candidates that
// only exist through their launcher (web search, calculator).
type Candidate struct {
	Launcher *Launcher
	Record   *Record
	Show     ShowFunc
}

func (c *Candidate) DisplayName() string {
	if c.Record != nil && c.Record.Name != "" {
		return c.Record.Name
	}
	return c.Launcher.DisplayName
}

func (c *Candidate) Exec() string {
	switch c.Launcher.Kind {
	case App, Command, Executables:
		if c.Record != nil {
			return c.Record.Exec
		}
	case Web:
		return c.Launcher.Engine
	}
	return ""
}

// Priority is the ranking key; lower sorts first.
func (c *Candidate) Priority() float32 {
	switch c.Launcher.Kind {
	case App, Command, Executables:
		if c.Record != nil {
			return c.Record.Priority
		}
	}
	return c.Launcher.Priority
}

// Search returns the lowercase string the fuzzy matcher runs against.
func (c *Candidate) Search() string {
	switch c.Launcher.Kind {
	case App, Command, Executables:
		if c.Record != nil {
			return c.Record.SearchString
		}
	case Web:
		return strings.ToLower(c.Launcher.DisplayName)
	}
	return ""
}

func (c *Candidate) Home() HomeType { return c.Launcher.Home }

// Mode is the alias of the launcher, empty for the universal mode.
func (c *Candidate) Mode() string { return c.Launcher.Alias }

// BasedShow asks the candidate's own visibility override, if any.
func (c *Candidate) BasedShow(query string) (show, ok bool) {
	if c.Launcher.Kind != Calc || c.Show == nil {
		return false, false
	}
	return c.Show(query)
}

func (c *Candidate) Vars() []Variable {
	if c.Record == nil {
		return nil
	}
	return c.Record.Vars
}

func (c *Candidate) Actions() []Action {
	if c.Record == nil {
		return nil
	}
	return c.Record.Actions
}

func (c *Candidate) Icon() string {
	if c.Record != nil && c.Record.Icon != "" {
		return c.Record.Icon
	}
	return c.Launcher.Icon
}

func (c *Candidate) Terminal() bool {
	return c.Record != nil && c.Record.Terminal
}
