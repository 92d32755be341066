package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/logging"
	"github.com/0xADE/ade-launchd/internal/metrics"
	"github.com/0xADE/ade-launchd/internal/search"
	"github.com/0xADE/ade-launchd/parser"
)

// Engine rebuilds snapshots and keeps launch statistics.
// *launcher.Engine satisfies it.
type Engine interface {
	Load(ctx context.Context) (*candidate.Snapshot, error)
	RecordLaunch(exec string)
}

type Options struct {
	Socket    string
	Store     *candidate.Store
	Engine    Engine
	Terminal  string
	ListLimit int
	Workers   int
	// Spawner runs search computations; shared by every session.
	Spawner search.Spawner
	// Start launches a process and returns its pid.
	Start   StartFunc
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Server handles Unix socket connections. Every connection is a search
// session over the shared snapshot store.
type Server struct {
	listener net.Listener
	opts     Options
	log      *logging.Logger

	mu       sync.RWMutex
	stopped  bool
	sessions map[*session]struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	reindexMu sync.Mutex
}

// NewServer listens on opts.Socket, replacing a stale socket file.
func NewServer(opts Options) (*Server, error) {
	socketDir := filepath.Dir(opts.Socket)
	if err := os.MkdirAll(socketDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket dir: %w", err)
	}
	if err := os.Remove(opts.Socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", opts.Socket)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", opts.Socket, err)
	}

	s := newServer(opts)
	s.listener = listener
	return s, nil
}

func newServer(opts Options) *Server {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 128
	}
	if opts.Start == nil {
		opts.Start = StartDetached
	}
	if opts.Terminal == "" {
		opts.Terminal = "xterm"
	}
	return &Server{
		opts:     opts,
		log:      opts.Logger.OrNoop().Component("server"),
		sessions: map[*session]struct{}{},
	}
}

// Start accepts connections until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Stop() })
	defer stop()

	s.log.Info("listening", "socket", s.opts.Socket)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			stopped := s.stopped
			s.mu.RUnlock()
			if stopped {
				s.wg.Wait()
				return ctx.Err()
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// Stop closes the listener and every open session.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		for sess := range s.sessions {
			sess.conn.Close()
		}
		s.mu.Unlock()
		if s.listener != nil {
			err = s.listener.Close()
		}
	})
	return err
}

// Reindex rebuilds the snapshot, publishes it and recomputes every open
// session's query against it. Concurrent calls are serialized.
func (s *Server) Reindex(ctx context.Context) (int, error) {
	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()

	snap, err := s.opts.Engine.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reindex: %w", err)
	}
	s.opts.Store.Publish(snap)

	s.mu.RLock()
	for sess := range s.sessions {
		sess.pipe.Refresh()
	}
	s.mu.RUnlock()

	s.log.Info("reindexed", "candidates", snap.Len())
	return snap.Len(), nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sess := s.openSession(conn)
	defer s.closeSession(sess)

	s.log.Debug("new connection accepted")

	p, err := parser.NewParser(conn)
	if err != nil {
		s.log.Warn("failed to create parser", "error", err)
		s.writeError(conn, "parser", "invalid header", err.Error())
		return
	}

	for {
		cmd, err := p.ParseCommand()
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			s.log.Debug("connection closed by client")
			return
		}
		if err != nil {
			s.log.Warn("parse error", "error", err)
			s.writeError(conn, "parser", "parse error", err.Error())
			if !errors.Is(err, parser.ErrBadValue) {
				return
			}
			continue
		}

		s.log.Debug("executing command", "cmd", cmd.Name, "args", len(cmd.Args))
		s.executeCommand(ctx, sess, cmd)
	}
}

func (s *Server) openSession(conn net.Conn) *session {
	sess := &session{
		conn: conn,
		pipe: search.New(s.opts.Store, search.Options{
			Workers: s.opts.Workers,
			Spawner: s.opts.Spawner,
			Logger:  s.opts.Logger,
			Metrics: s.opts.Metrics,
		}),
	}
	// start from the home view
	sess.pipe.Submit("")

	s.mu.Lock()
	if s.stopped {
		conn.Close()
	}
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	return sess
}

func (s *Server) closeSession(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	sess.pipe.Close()
}

// writeResponse writes a response with TXT01 header
func (s *Server) writeResponse(w io.Writer, response string) {
	if _, err := io.WriteString(w, parser.Header+parser.Version+response); err != nil {
		s.log.Debug("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w io.Writer, cmd, errType, desc string) {
	s.log.Debug("writing error response", "cmd", cmd, "error", errType, "desc", desc)
	s.writeResponse(w, fmt.Sprintf("error-cmd: %s\nerror: %s\ndesc: %s\n\n", cmd, errType, oneLine(desc)))
}

// reply builds a response: "key: value" attributes, a blank line, then
// as many body lines as the "lines" attribute announces.
type reply struct {
	attrs strings.Builder
	lines []string
}

func newReply(cmd string) *reply {
	r := &reply{}
	return r.attr("cmd", cmd)
}

// withBody makes the reply announce its body even when it is empty.
func (r *reply) withBody() *reply {
	if r.lines == nil {
		r.lines = []string{}
	}
	return r
}

func (r *reply) attr(key string, value any) *reply {
	fmt.Fprintf(&r.attrs, "%s: %v\n", key, value)
	return r
}

func (r *reply) line(format string, args ...any) {
	r.lines = append(r.lines, oneLine(fmt.Sprintf(format, args...)))
}

func (r *reply) String() string {
	var b strings.Builder
	b.WriteString(r.attrs.String())
	if r.lines != nil {
		fmt.Fprintf(&b, "lines: %d\n", len(r.lines))
	}
	b.WriteString("\n")
	for _, l := range r.lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
