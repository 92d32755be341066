// Package parser reads the TXT01 request stream: values are pushed one per
// line and a command word consumes everything pushed since the previous
// command.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	Header  = "TXT"
	Version = "01"
)

var (
	ErrInvalidHeader = errors.New("invalid header")
	// ErrBadValue marks a line that is neither a command nor a value. The
	// stream stays usable after it.
	ErrBadValue = errors.New("cannot parse value")
)

// ValueType represents the type of a value on the stack
type ValueType int

const (
	TypeString ValueType = iota
	TypeInt
	TypeBool
)

// Value represents a value on the stack
type Value struct {
	Type ValueType
	Str  string
	Int  int64
	Bool bool
}

// Command represents a parsed command
type Command struct {
	Name string
	Args []Value
}

// Strings returns the string arguments in push order.
func (c *Command) Strings() []string {
	var out []string
	for _, v := range c.Args {
		if v.Type == TypeString {
			out = append(out, v.Str)
		}
	}
	return out
}

// Ints returns the integer arguments in push order.
func (c *Command) Ints() []int64 {
	var out []int64
	for _, v := range c.Args {
		if v.Type == TypeInt {
			out = append(out, v.Int)
		}
	}
	return out
}

// HasOption reports whether the string argument "opt: name" was pushed.
func (c *Command) HasOption(name string) bool {
	for _, s := range c.Strings() {
		if opt, ok := strings.CutPrefix(s, "opt:"); ok && strings.TrimSpace(opt) == name {
			return true
		}
	}
	return false
}

// Commands known to the server. Anything else is parsed as a value.
var commands = map[string]bool{
	"query":   true, // "text: submit a search
	"mode":    true, // ["alias: switch mode, none resets to all
	"modes":   true,
	"list":    true, // [limit]: wait for the search, list results
	"select":  true, // pos: move the cursor
	"actions": true, // [pos]: list the actions of a result
	"run":     true, // [pos] [action] ["opt: terminal]
	"reindex": true,
	"status":  true,
}

// Parser parses Forth-style commands
type Parser struct {
	reader  *bufio.Reader
	header  string
	version string
}

// NewParser reads and checks the protocol header.
func NewParser(reader io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(reader),
	}

	headerBytes := make([]byte, 5)
	if _, err := io.ReadFull(p.reader, headerBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	p.header = string(headerBytes[:3])
	p.version = string(headerBytes[3:5])

	if p.header != Header {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidHeader, p.header)
	}
	if p.version != Version {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidHeader, p.version)
	}

	return p, nil
}

// ParseCommand parses the next command from input. Values left on the
// stack at end of input are dropped.
func (p *Parser) ParseCommand() (*Command, error) {
	stack := make([]Value, 0)

	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, err
		}

		if !strings.HasPrefix(line, `"`) {
			line = strings.TrimSpace(line)
		} else {
			line = strings.TrimRight(line, "\r\n")
		}

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if commands[line] {
			return &Command{
				Name: line,
				Args: stack,
			}, nil
		}

		value, err := parseValue(line)
		if err != nil {
			return nil, fmt.Errorf("parse error: %w", err)
		}
		stack = append(stack, value)
	}
}

func parseValue(line string) (Value, error) {
	// String values are prefixed with " and keep inner spaces.
	if after, ok := strings.CutPrefix(line, `"`); ok {
		return Value{Type: TypeString, Str: after}, nil
	}

	switch line {
	case "t":
		return Value{Type: TypeBool, Bool: true}, nil
	case "f":
		return Value{Type: TypeBool, Bool: false}, nil
	}

	if intVal, err := strconv.ParseInt(line, 10, 64); err == nil {
		return Value{Type: TypeInt, Int: intVal}, nil
	}

	return Value{}, fmt.Errorf("%w: %s", ErrBadValue, line)
}

// ReadAllCommands reads all commands from the parser
func (p *Parser) ReadAllCommands() ([]*Command, error) {
	var commands []*Command

	for {
		cmd, err := p.ParseCommand()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}

	return commands, nil
}
