// Package console turns a blocking line-oriented stream into the
// non-blocking input the control loop samples once per cycle.
package console

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

const inputBuffer = 16

// Stream reads lines from in on a background goroutine. Output goes to out.
type Stream struct {
	lines chan string

	mu  sync.Mutex
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Stream {
	s := &Stream{
		lines: make(chan string, inputBuffer),
		out:   out,
	}
	go s.read(in)
	return s
}

func (s *Stream) read(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("Console input closed")
	}
}

// PollByte returns the first byte of the next pending line, or ok=false
// when nothing is waiting. An empty line reads as '\n'. The rest of the line
// and any other queued input are discarded.
func (s *Stream) PollByte() (byte, bool) {
	select {
	case line := <-s.lines:
		s.Drain()
		if line == "" {
			return '\n', true
		}
		return line[0], true
	default:
		return 0, false
	}
}

// ReadLine returns the next pending line without blocking.
func (s *Stream) ReadLine() (string, bool) {
	select {
	case line := <-s.lines:
		return line, true
	default:
		return "", false
	}
}

// Drain discards all pending input.
func (s *Stream) Drain() {
	for {
		select {
		case <-s.lines:
		default:
			return
		}
	}
}

func (s *Stream) Println(a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, a...)
}
