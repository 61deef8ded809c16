package ioengine

import (
	"context"
	"errors"
	"net"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Listen opens a TCP listener on addr with SO_REUSEPORT set, so every
// worker can bind the same address independently and let the kernel
// distribute new connections across them instead of funneling every
// accept through a single shared listener.
func Listen(network, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), network, addr)
}

// Listener runs the accept loop for one worker's socket, posting a
// CompletionAccept for every connection it accepts.
type Listener struct {
	ln     net.Listener
	logger *zap.Logger
}

// NewListener wraps ln for use by one worker's event loop.
func NewListener(ln net.Listener, logger *zap.Logger) *Listener {
	return &Listener{ln: ln, logger: logger}
}

// Serve accepts connections until the listener is closed, posting each one
// as a CompletionAccept on completions. Returns when the listener closes.
func (l *Listener) Serve(completions chan<- Completion) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept error", zap.Error(err))
			continue
		}
		completions <- Completion{Kind: CompletionAccept, Conn: conn}
	}
}

// Close stops the accept loop.
func (l *Listener) Close() error {
	return l.ln.Close()
}
