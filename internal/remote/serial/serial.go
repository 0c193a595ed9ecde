package serial

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cjeanneret/BlindGo/internal/debug"
	"go.bug.st/serial"
)

// SubmitFunc hands a command string to the control loop. It returns
// false if the command was dropped.
type SubmitFunc func(cmd string) bool

const (
	maxLine    = 256 // longest accepted command line, terminator included
	sendBuffer = 16  // outbound lines waiting for the writer
)

// errLineTooLong reports a line that was consumed and discarded.
var errLineTooLong = errors.New("line too long")

// Link is a line-oriented command channel: every line read is a command,
// every published status is written back as one line.
type Link struct {
	name   string
	rw     io.ReadWriteCloser
	submit SubmitFunc
	send   chan string

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

// Open opens a serial port at the given baud rate.
func Open(port string, baud int, submit SubmitFunc) (*Link, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	debug.Info("Serial command channel on %s (%d baud)", port, baud)
	return NewLink(port, p, submit), nil
}

// NewLink wraps an already open stream.
func NewLink(name string, rw io.ReadWriteCloser, submit SubmitFunc) *Link {
	return &Link{
		name:   name,
		rw:     rw,
		submit: submit,
		send:   make(chan string, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Run reads commands until ctx is cancelled or the stream ends. Lines
// longer than maxLine are dropped and answered with "error".
func (l *Link) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()
	go l.writePump()

	r := bufio.NewReaderSize(l.rw, maxLine)
	for {
		line, err := readLine(r)
		if errors.Is(err, errLineTooLong) {
			debug.Live("Serial %s: dropped line longer than %d bytes", l.name, maxLine)
			l.enqueue("error")
			continue
		}
		if err != nil {
			if ctx.Err() != nil || l.isClosed() || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("serial %s: %w", l.name, err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		debug.Verbose("Serial %s: received %q", l.name, line)
		if !l.submit(line) {
			l.enqueue("busy")
		}
	}
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	chunk, err := r.ReadSlice('\n')
	switch {
	case err == nil:
		return string(chunk[:len(chunk)-1]), nil
	case errors.Is(err, io.EOF) && len(chunk) > 0:
		return string(chunk), nil
	case !errors.Is(err, bufio.ErrBufferFull):
		return "", err
	}

	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = r.ReadSlice('\n')
	}
	if err != nil {
		return "", err
	}
	return "", errLineTooLong
}

// Publish queues status as a line. It never blocks: when the writer is
// behind the status is dropped.
func (l *Link) Publish(status string) {
	l.enqueue(status)
}

func (l *Link) enqueue(s string) {
	select {
	case <-l.done:
	case l.send <- s:
	default:
		debug.Verbose("Serial %s: send buffer full, dropping %q", l.name, s)
	}
}

func (l *Link) writePump() {
	for {
		select {
		case <-l.done:
			return
		case s := <-l.send:
			if _, err := io.WriteString(l.rw, s+"\n"); err != nil {
				if !l.isClosed() {
					debug.Error(fmt.Errorf("serial %s write: %w", l.name, err))
				}
			}
		}
	}
}

func (l *Link) isClosed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Close closes the underlying port and stops the writer.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.closeErr = l.rw.Close()
	})
	return l.closeErr
}
