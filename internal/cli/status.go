package cli

import (
	"fmt"
	"io"
	"os"
	gosync "sync"
	"time"

	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// statusLine shows the current phase of a long-running command. On a
// terminal it animates in place; otherwise each phase is printed once.
type statusLine struct {
	w   io.Writer
	tty bool

	mu      gosync.Mutex
	message string
	stop    chan struct{}
	done    chan struct{}
}

func newStatusLine(w io.Writer) *statusLine {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &statusLine{w: w, tty: tty}
}

// Update sets the message, starting the animation on first use.
func (s *statusLine) Update(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = msg
	if !s.tty {
		_, _ = valueColor.Fprintf(s.w, "%s...\n", msg)
		return
	}
	if s.stop == nil {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.animate(s.stop, s.done)
	}
}

// Stop ends the animation and clears the line.
func (s *statusLine) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	_, _ = fmt.Fprint(s.w, "\r\033[K")
}

func (s *statusLine) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		s.mu.Lock()
		msg := s.message
		s.mu.Unlock()
		_, _ = fmt.Fprintf(s.w, "\r\033[K%s %s", spinnerFrames[frame%len(spinnerFrames)], msg)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
