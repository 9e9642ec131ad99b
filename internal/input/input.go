// Package input reads interactive lines of vorth source from a terminal,
// using a go implementation of GNU Readline so history and line-editing
// work the way a user expects from any other REPL.
package input

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// LineReader reads one line of vorth source at a time from stdin, via
// readline so input stays clear of raw escape sequences and gains history
// navigation for free.
//
// LineReader should not be constructed directly; use [NewLineReader].
type LineReader struct {
	rl     *readline.Instance
	prompt string
}

// NewLineReader initializes readline with the given prompt. The returned
// LineReader must have Close called on it before disposal to tear down
// readline's terminal state.
func NewLineReader(prompt string) (*LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &LineReader{rl: rl, prompt: prompt}, nil
}

// Close tears down readline's terminal state.
func (lr *LineReader) Close() error {
	return lr.rl.Close()
}

// ReadLine blocks until a line containing non-space characters is read, or
// an error occurs. At end of input the returned string is empty and err is
// io.EOF; on interrupt (Ctrl-C) err is readline.ErrInterrupt.
func (lr *LineReader) ReadLine() (string, error) {
	var line string
	var err error

	for line == "" {
		line, err = lr.rl.Readline()
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
	}

	return line, nil
}

// SetPrompt updates the prompt shown before the next read.
func (lr *LineReader) SetPrompt(p string) {
	lr.prompt = p
	lr.rl.SetPrompt(p)
}

// GetPrompt gets the current prompt.
func (lr *LineReader) GetPrompt() string {
	return lr.prompt
}

var _ io.Closer = (*LineReader)(nil)
