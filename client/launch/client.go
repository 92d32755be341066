// Package launch is the client of the ade-launchd socket.
package launch

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

const protoVer = "TXT01" // cmdlist protocol, text format, v01

// Result is one line of a list response.
type Result struct {
	Pos  int
	ID   int
	Name string
}

// Mode is a launcher alias the daemon accepts.
type Mode struct {
	Alias string
	Name  string
}

// Response is a decoded reply: its attributes and body lines.
type Response struct {
	Attrs map[string]string
	Lines []string
}

// ServerError is returned for error replies.
type ServerError struct {
	Cmd  string
	Kind string
	Desc string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s: %s (%s)", e.Cmd, e.Kind, e.Desc)
}

// Err returns the reply's error, if it is one.
func (r *Response) Err() error {
	cmd, ok := r.Attrs["error-cmd"]
	if !ok {
		return nil
	}
	return &ServerError{Cmd: cmd, Kind: r.Attrs["error"], Desc: r.Attrs["desc"]}
}

// Int returns attribute key as an integer.
func (r *Response) Int(key string) (int, error) {
	v, ok := r.Attrs[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	return strconv.Atoi(v)
}

// Client is one session with the daemon. The daemon keeps the query and
// mode of the session between calls.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
	socket string
}

// NewClient connects to the socket named by SocketPath.
func NewClient() (*Client, error) {
	socketPath, err := SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get socket path: %w", err)
	}
	return Dial(socketPath)
}

// Dial connects to socketPath and sends the protocol header.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", socketPath, err)
	}

	if _, err := conn.Write([]byte(protoVer)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send header: %w", err)
	}

	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		socket: socketPath,
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// FormatArgument formats an argument according to its type: numbers and
// t/f pass through, anything else becomes a string value.
func FormatArgument(arg string) string {
	arg = strings.TrimSpace(arg)

	if strings.HasPrefix(arg, `"`) {
		return arg
	}
	if arg == "t" || arg == "f" {
		return arg
	}
	if _, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return arg
	}
	return `"` + arg
}

// Str quotes s as a string value whatever it looks like.
func Str(s string) string {
	return `"` + strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Call pushes the already formatted values, sends cmdName and reads the
// reply. Error replies are returned as *ServerError along with the
// response.
func (c *Client) Call(cmdName string, values ...string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	for _, v := range values {
		b.WriteString(v)
		b.WriteString("\n")
	}
	b.WriteString(cmdName)
	b.WriteString("\n")
	if _, err := io.WriteString(c.conn, b.String()); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	resp, err := c.readResponse()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, resp.Err()
}

// readResponse reads the header, the attribute block up to the blank line
// and then as many body lines as "lines" announces.
func (c *Client) readResponse() (*Response, error) {
	header := make([]byte, len(protoVer))
	if _, err := io.ReadFull(c.reader, header); err != nil {
		return nil, fmt.Errorf("failed to read response header: %w", err)
	}
	if string(header) != protoVer {
		return nil, fmt.Errorf("unexpected response header %q", header)
	}

	resp := &Response{Attrs: map[string]string{}}
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if ok {
			resp.Attrs[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	n, ok := resp.Attrs["lines"]
	if !ok {
		return resp, nil
	}
	count, err := strconv.Atoi(n)
	if err != nil {
		return nil, fmt.Errorf("bad lines attribute %q: %w", n, err)
	}
	resp.Lines = make([]string, 0, count)
	for range count {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		resp.Lines = append(resp.Lines, strings.TrimRight(line, "\r\n"))
	}
	return resp, nil
}

// Query submits a search. It does not wait for the result.
func (c *Client) Query(text string) error {
	_, err := c.Call("query", Str(text))
	return err
}

// SetMode switches the session to alias; an empty alias means all.
func (c *Client) SetMode(alias string) error {
	if alias == "" {
		_, err := c.Call("mode")
		return err
	}
	_, err := c.Call("mode", Str(alias))
	return err
}

// Modes lists the launcher aliases.
func (c *Client) Modes() ([]Mode, error) {
	resp, err := c.Call("modes")
	if err != nil {
		return nil, err
	}
	modes := make([]Mode, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		alias, name, _ := strings.Cut(line, " ")
		modes = append(modes, Mode{Alias: alias, Name: name})
	}
	return modes, nil
}

// List waits for the session's search and returns at most limit results;
// limit <= 0 uses the daemon default.
func (c *Client) List(limit int) ([]Result, error) {
	var values []string
	if limit > 0 {
		values = append(values, strconv.Itoa(limit))
	}
	resp, err := c.Call("list", values...)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 3 {
			continue
		}
		pos, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		results = append(results, Result{Pos: pos, ID: id, Name: parts[2]})
	}
	return results, nil
}

// Select moves the session's cursor.
func (c *Client) Select(pos int) error {
	_, err := c.Call("select", strconv.Itoa(pos))
	return err
}

// Actions lists the action names of the result at pos.
func (c *Client) Actions(pos int) ([]string, error) {
	resp, err := c.Call("actions", strconv.Itoa(pos))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		_, name, _ := strings.Cut(line, " ")
		names = append(names, name)
	}
	return names, nil
}

// Run launches the result at pos and returns the pid.
func (c *Client) Run(pos int, terminal bool) (int, error) {
	values := []string{strconv.Itoa(pos)}
	if terminal {
		values = append([]string{Str("opt: terminal")}, values...)
	}
	return c.run(values)
}

// RunAction launches action of the result at pos.
func (c *Client) RunAction(pos, action int) (int, error) {
	return c.run([]string{strconv.Itoa(pos), strconv.Itoa(action)})
}

func (c *Client) run(values []string) (int, error) {
	resp, err := c.Call("run", values...)
	if err != nil {
		return 0, err
	}
	return resp.Int("pid")
}

// Reindex rebuilds the daemon's snapshot and returns its size.
func (c *Client) Reindex() (int, error) {
	resp, err := c.Call("reindex")
	if err != nil {
		return 0, err
	}
	return resp.Int("candidates")
}

// Status returns the daemon status attributes.
func (c *Client) Status() (map[string]string, error) {
	resp, err := c.Call("status")
	if err != nil {
		return nil, err
	}
	return resp.Attrs, nil
}
