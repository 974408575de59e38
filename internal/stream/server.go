// internal/stream/server.go
package stream

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/rtd-streamer/internal/poller"
)

// Config is the listener config.
type Config struct {
	Listen       string
	WriteTimeout time.Duration
}

// Server streams readings to exactly one TCP client.
//
// Only the first client of a session is served. A second connection while
// it is active is closed on accept. When the client goes away (peer close,
// read error, write error or write timeout) Lost is closed and no new
// client is accepted: the session is over.
type Server struct {
	ln           net.Listener
	log          *zap.Logger
	writeTimeout time.Duration

	mu    sync.Mutex
	conn  net.Conn
	ended bool // a client was served and is gone

	lost     chan struct{}
	lostOnce sync.Once

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Listen binds the listening socket and starts accepting.
func Listen(cfg Config, log *zap.Logger) (*Server, error) {
	if cfg.Listen == "" {
		return nil, errors.New("stream: listen address required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("stream: listen %s: %w", cfg.Listen, err)
	}

	s := &Server{
		ln:           ln,
		log:          log,
		writeTimeout: cfg.WriteTimeout,
		lost:         make(chan struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	log.Info("stream server started", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Lost is closed once the client connection is gone.
func (s *Server) Lost() <-chan struct{} {
	return s.lost
}

// Connected reports whether a client is currently attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Push writes one reading to the client.
// No client: no-op, nothing is buffered for a later connection.
// A write failure drops the client and closes Lost.
func (s *Server) Push(r poller.Reading) error {
	line := FormatLine(r)

	s.mu.Lock()
	c := s.conn
	if c == nil {
		s.mu.Unlock()
		return nil
	}
	err := c.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err == nil {
		err = writeAll(c, line)
	}
	s.mu.Unlock()

	if err != nil {
		s.drop(c, err)
		return fmt.Errorf("stream: push: %w", err)
	}
	return nil
}

// Close stops accepting and closes the client. It does not close Lost.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ln.Close()

		s.mu.Lock()
		c := s.conn
		s.conn = nil
		s.ended = true
		s.mu.Unlock()

		if c != nil {
			_ = c.Close()
		}
		s.wg.Wait()
	})
	return err
}

// ---- internals ----

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("stream accept failed", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.mu.Lock()
		busy := s.conn != nil || s.ended
		if !busy {
			s.conn = c
		}
		s.mu.Unlock()

		if busy {
			s.log.Warn("stream client rejected: one client per session",
				zap.String("remote", c.RemoteAddr().String()))
			_ = c.Close()
			continue
		}

		s.log.Info("stream client connected", zap.String("remote", c.RemoteAddr().String()))

		s.wg.Add(1)
		go s.watch(c)
	}
}

// watch reads (and discards) whatever the client sends, to notice a close.
func (s *Server) watch(c net.Conn) {
	defer s.wg.Done()

	buf := make([]byte, 512)
	for {
		if _, err := c.Read(buf); err != nil {
			s.drop(c, err)
			return
		}
	}
}

// drop detaches c if it is still the active client and signals Lost.
func (s *Server) drop(c net.Conn, cause error) {
	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.ended = true
	s.mu.Unlock()

	_ = c.Close()

	if errors.Is(cause, io.EOF) {
		s.log.Info("stream client disconnected", zap.String("remote", c.RemoteAddr().String()))
	} else {
		s.log.Warn("stream client lost", zap.String("remote", c.RemoteAddr().String()), zap.Error(cause))
	}

	s.lostOnce.Do(func() { close(s.lost) })
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
