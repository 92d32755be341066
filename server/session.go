package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/indexer/desktop"
	"github.com/0xADE/ade-launchd/internal/launcher"
	"github.com/0xADE/ade-launchd/internal/search"
	"github.com/0xADE/ade-launchd/parser"
)

var errNotRunnable = errors.New("candidate has nothing to run")

// session is the state of one connection. Only the connection's goroutine
// touches it.
type session struct {
	conn net.Conn
	pipe *search.Pipeline
	// raw text of the last query; web searches use it unfolded
	query string
}

func (s *Server) executeCommand(ctx context.Context, sess *session, cmd *parser.Command) {
	switch cmd.Name {
	case "query":
		s.handleQuery(sess, cmd)
	case "mode":
		s.handleMode(sess, cmd)
	case "modes":
		s.handleModes(sess)
	case "list":
		s.handleList(ctx, sess, cmd)
	case "select":
		s.handleSelect(ctx, sess, cmd)
	case "actions":
		s.handleActions(ctx, sess, cmd)
	case "run":
		s.handleRun(ctx, sess, cmd)
	case "reindex":
		s.handleReindex(ctx, sess)
	case "status":
		s.handleStatus(sess)
	default:
		s.writeError(sess.conn, cmd.Name, "unknown command", "Command not recognized")
	}
}

func (s *Server) handleQuery(sess *session, cmd *parser.Command) {
	strs := cmd.Strings()
	if len(strs) != 1 {
		s.writeError(sess.conn, "query", "invalid argument", "query requires one string parameter")
		return
	}
	sess.query = strs[0]
	sess.pipe.Submit(strs[0])
	s.writeResponse(sess.conn, newReply("query").attr("status", 0).String())
}

func (s *Server) handleMode(sess *session, cmd *parser.Command) {
	mode := search.AllMode
	if strs := cmd.Strings(); len(strs) > 0 && strs[0] != "" {
		mode = strs[0]
	}
	if mode != search.AllMode && !s.knownMode(mode) {
		s.writeError(sess.conn, "mode", "unknown mode", fmt.Sprintf("No launcher has the alias %q", mode))
		return
	}
	sess.pipe.SetMode(mode)
	s.writeResponse(sess.conn, newReply("mode").attr("mode", mode).attr("status", 0).String())
}

func (s *Server) knownMode(alias string) bool {
	for _, m := range s.opts.Store.Snapshot().Modes() {
		if m.Alias == alias {
			return true
		}
	}
	return false
}

func (s *Server) handleModes(sess *session) {
	r := newReply("modes").attr("mode", sess.pipe.Mode()).withBody()
	for _, m := range s.opts.Store.Snapshot().Modes() {
		r.line("%s %s", m.Alias, m.Name)
	}
	s.writeResponse(sess.conn, r.String())
}

// settled waits for the session's search and returns its result. It
// writes the error response itself when it fails.
func (s *Server) settled(ctx context.Context, sess *session, cmdName string) (search.Result, bool) {
	if err := sess.pipe.Settle(ctx); err != nil {
		s.writeError(sess.conn, cmdName, "cancelled", err.Error())
		return search.Result{}, false
	}
	res, _ := sess.pipe.Current()
	return res, true
}

func (s *Server) handleList(ctx context.Context, sess *session, cmd *parser.Command) {
	limit := s.opts.ListLimit
	if ints := cmd.Ints(); len(ints) > 0 && ints[0] > 0 {
		limit = int(ints[0])
	}

	res, ok := s.settled(ctx, sess, "list")
	if !ok {
		return
	}

	r := newReply("list").
		attr("query", res.Query).
		attr("mode", res.Mode).
		attr("list-len", res.Len()).
		attr("selected", sess.pipe.Selected()).
		withBody()
	for pos := 0; pos < res.Len() && pos < limit; pos++ {
		r.line("%d %d %s", pos, res.Indices[pos], label(res.At(pos)))
	}
	s.writeResponse(sess.conn, r.String())
}

func (s *Server) handleSelect(ctx context.Context, sess *session, cmd *parser.Command) {
	ints := cmd.Ints()
	if len(ints) == 0 {
		s.writeError(sess.conn, "select", "missing position", "select requires a position parameter")
		return
	}
	if _, ok := s.settled(ctx, sess, "select"); !ok {
		return
	}
	if !sess.pipe.Select(int(ints[0])) {
		s.writeError(sess.conn, "select", "index not found", "Requested position is out of range.")
		return
	}
	s.writeResponse(sess.conn, newReply("select").attr("selected", ints[0]).attr("status", 0).String())
}

// target resolves the position argument, defaulting to the cursor.
func (s *Server) target(ctx context.Context, sess *session, cmd *parser.Command) (*candidate.Candidate, int, bool) {
	res, ok := s.settled(ctx, sess, cmd.Name)
	if !ok {
		return nil, 0, false
	}
	pos := sess.pipe.Selected()
	if ints := cmd.Ints(); len(ints) > 0 {
		pos = int(ints[0])
	}
	if pos < 0 || pos >= res.Len() {
		s.writeError(sess.conn, cmd.Name, "index not found", "Requested position not found.")
		return nil, 0, false
	}
	return res.At(pos), pos, true
}

func (s *Server) handleActions(ctx context.Context, sess *session, cmd *parser.Command) {
	c, pos, ok := s.target(ctx, sess, cmd)
	if !ok {
		return
	}
	r := newReply("actions").attr("pos", pos).withBody()
	for i, a := range c.Actions() {
		r.line("%d %s", i, a.Name)
	}
	s.writeResponse(sess.conn, r.String())
}

func (s *Server) handleRun(ctx context.Context, sess *session, cmd *parser.Command) {
	c, pos, ok := s.target(ctx, sess, cmd)
	if !ok {
		return
	}
	action := -1
	if ints := cmd.Ints(); len(ints) > 1 {
		action = int(ints[1])
	}

	argv, err := s.command(c, action, sess.query, cmd.HasOption("terminal"))
	if err != nil {
		s.writeError(sess.conn, "run", "invalid exec", err.Error())
		return
	}

	s.log.Debug("executing", "name", label(c), "argv", argv)
	pid, err := s.opts.Start(argv)
	s.opts.Metrics.Launch(err)
	if err != nil {
		s.log.Warn("failed to start command", "name", label(c), "error", err)
		s.writeError(sess.conn, "run", "execution failed", err.Error())
		return
	}

	switch c.Launcher.Kind {
	case candidate.App, candidate.Command, candidate.Executables:
		s.opts.Engine.RecordLaunch(c.Exec())
	}

	s.log.Info("launched", "name", label(c), "pid", pid)
	s.writeResponse(sess.conn, newReply("run").attr("pos", pos).attr("status", 0).attr("pid", pid).String())
}

// command builds the argv that runs c, or its action-th action when
// action is not negative.
func (s *Server) command(c *candidate.Candidate, action int, query string, terminal bool) ([]string, error) {
	terminal = terminal || c.Terminal()

	var line string
	switch {
	case action >= 0:
		actions := c.Actions()
		if action >= len(actions) {
			return nil, fmt.Errorf("action %d not found", action)
		}
		line = desktop.ExpandExec(actions[action].Exec, c.DisplayName(), c.Record.Origin, "")
	case c.Launcher.Kind == candidate.Web:
		return []string{"xdg-open", launcher.SearchURL(c.Exec(), query)}, nil
	case c.Launcher.Kind == candidate.Calc:
		return nil, errNotRunnable
	case c.Launcher.Kind == candidate.App:
		line = desktop.ExpandExec(c.Exec(), c.DisplayName(), c.Record.Origin, "")
	default:
		line = c.Exec()
	}

	if strings.TrimSpace(line) == "" {
		return nil, errors.New("empty exec command")
	}
	if terminal {
		return []string{s.opts.Terminal, "-e", "sh", "-c", line}, nil
	}
	return []string{"sh", "-c", line}, nil
}

func (s *Server) handleReindex(ctx context.Context, sess *session) {
	n, err := s.Reindex(ctx)
	if err != nil {
		s.writeError(sess.conn, "reindex", "reindex failed", err.Error())
		return
	}
	s.writeResponse(sess.conn, newReply("reindex").attr("status", 0).attr("candidates", n).String())
}

func (s *Server) handleStatus(sess *session) {
	snap := s.opts.Store.Snapshot()
	s.mu.RLock()
	sessions := len(s.sessions)
	s.mu.RUnlock()

	s.writeResponse(sess.conn, newReply("status").
		attr("candidates", snap.Len()).
		attr("modes", len(snap.Modes())).
		attr("mode", sess.pipe.Mode()).
		attr("sessions", sessions).
		attr("status", 0).
		String())
}

func label(c *candidate.Candidate) string {
	if name := c.DisplayName(); name != "" {
		return name
	}
	return c.Launcher.Name
}
