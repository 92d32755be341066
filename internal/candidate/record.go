// Package candidate holds the data model shared by the indexer, the launcher
// loader and the search pipeline.
package candidate

import (
	"fmt"

	"github.com/goccy/go-json"
)

// HomeType decides whether an item shows on the empty-query home view, in
// search results, or both.
type HomeType uint8

const (
	Search HomeType = iota
	OnlyHome
	Home
	Persist
)

func (h HomeType) String() string {
	switch h {
	case OnlyHome:
		return "only_home"
	case Home:
		return "home"
	case Persist:
		return "persist"
	}
	return "search"
}

func (h HomeType) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *HomeType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "search":
		*h = Search
	case "only_home", "onlyhome":
		*h = OnlyHome
	case "home":
		*h = Home
	case "persist":
		*h = Persist
	default:
		return fmt.Errorf("unknown home type %q", b)
	}
	return nil
}

// VariableKind is the input widget a runtime variable needs.
type VariableKind uint8

const (
	StringInput VariableKind = iota
	PasswordInput
)

// Variable is a value the user has to supply before the command runs.
type Variable struct {
	Kind VariableKind
	Name string
}

type variableJSON struct {
	StringInput   *string `json:"string_input,omitempty"`
	PasswordInput *string `json:"password_input,omitempty"`
}

func (v Variable) MarshalJSON() ([]byte, error) {
	var out variableJSON
	name := v.Name
	if v.Kind == PasswordInput {
		out.PasswordInput = &name
	} else {
		out.StringInput = &name
	}
	return json.Marshal(out)
}

func (v *Variable) UnmarshalJSON(b []byte) error {
	var in variableJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch {
	case in.StringInput != nil:
		*v = Variable{Kind: StringInput, Name: *in.StringInput}
	case in.PasswordInput != nil:
		*v = Variable{Kind: PasswordInput, Name: *in.PasswordInput}
	default:
		return fmt.Errorf("variable needs string_input or password_input: %s", b)
	}
	return nil
}

// Action is a secondary entry point of a record, e.g. "New Private Window".
type Action struct {
	Name   string `json:"name"`
	Exec   string `json:"exec"`
	Icon   string `json:"icon"`
	Method string `json:"method"`
	Exit   bool   `json:"exit"`
}

// UnmarshalJSON defaults Exit to true when the field is absent.
func (a *Action) UnmarshalJSON(b []byte) error {
	type plain Action
	p := plain{Exit: true}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = Action(p)
	return nil
}

// Valid reports whether the action can be launched.
func (a Action) Valid() bool { return a.Name != "" && a.Exec != "" }

// Full reports whether nothing more can be learned about the action.
func (a Action) Full() bool { return a.Valid() && a.Icon != "" }

// Key identifies a record in caches and during de-duplication.
type Key struct {
	Exec   string
	Origin string
}

// Record is one launchable entry produced by the indexer or a launcher.
// Records are only mutated while they are being built.
type Record struct {
	Name         string
	Exec         string
	SearchString string
	Icon         string
	Origin       string
	Priority     float32
	Actions      []Action
	Vars         []Variable
	Terminal     bool
}

func (r *Record) Key() Key { return Key{Exec: r.Exec, Origin: r.Origin} }

// Clone returns a copy that shares no slices with r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Actions != nil {
		c.Actions = append([]Action(nil), r.Actions...)
	}
	if r.Vars != nil {
		c.Vars = append([]Variable(nil), r.Vars...)
	}
	return &c
}
