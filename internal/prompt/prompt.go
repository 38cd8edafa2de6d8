// Package prompt asks yes/no questions before destructive actions.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when confirmation is needed but stdin is not
// a terminal and nothing was assumed.
var ErrNotInteractive = errors.New("confirmation required: stdin is not a terminal (use --yes)")

// Confirmer gates destructive actions.
type Confirmer struct {
	In  io.Reader
	Out io.Writer
	// Assume answers every question with yes without reading input.
	Assume bool
	// Interactive reports whether In is a terminal. Nil means check os.Stdin.
	Interactive func() bool
}

// New returns a Confirmer on stdin/stdout.
func New(assume bool) *Confirmer {
	return &Confirmer{In: os.Stdin, Out: os.Stdout, Assume: assume}
}

func (c *Confirmer) interactive() bool {
	if c.Interactive != nil {
		return c.Interactive()
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks question and reports whether the answer was yes. Anything
// other than y or yes, including end of input, is a no.
func (c *Confirmer) Confirm(question string) (bool, error) {
	if c.Assume {
		return true, nil
	}
	if !c.interactive() {
		return false, ErrNotInteractive
	}
	fmt.Fprintf(c.Out, "%s [y/N] ", question)
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
