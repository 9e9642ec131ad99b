package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dekarrin/vorth/internal/codegen"
	"github.com/dekarrin/vorth/internal/input"
	"github.com/dekarrin/vorth/internal/optimize"
	"github.com/dekarrin/vorth/internal/session"
)

// replEntryWord names the synthetic word each bare top-level expression line
// is wrapped into, so the rest of the pipeline never needs a separate
// "top-level code" code path: a REPL line is just a word definition like
// any other, always recompiled as part of the whole accumulated buffer.
const replEntryWord = "<repl-line>"

// runREPL starts an interactive loop reading one line of source at a time.
// Since internal/session.Session's word table only grows forward within a
// single source unit, each line is appended to a running buffer and the
// whole buffer is recompiled from a fresh Session every time: simpler than
// threading incremental word-table state through the pipeline, and cheap
// enough for REPL-sized programs that it never needs to be.
func runREPL() {
	lr, err := input.NewLineReader("vorth> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: could not start readline: %s\n", err)
		returnCode = ExitInitError
		return
	}
	defer lr.Close()

	backend := codegen.NewDirectBackend()
	opts := session.Options{
		Mode:        session.ModeFull,
		OptLevel:    optimize.O1,
		Backend:     backend,
		BackendMode: codegen.ModeJIT,
		Entry:       replEntryWord,
	}

	var history []string

	for {
		line, err := lr.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return
			}
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			return
		}

		if strings.EqualFold(line, "QUIT") {
			return
		}

		entered := wrapIfBareExpression(line)
		history = append(history, entered)

		sess := session.New("<repl>", redefinePolicy("shadow"))
		result := sess.Compile([]byte(strings.Join(history, "\n")), opts)

		for _, d := range result.Diagnostics {
			fmt.Println(d.Render(diagnosticWidth))
		}
		if result.HasErrors() {
			history = history[:len(history)-1]
			continue
		}
		if isBareExpression(line) && result.Artifact != nil && result.Artifact.Thunk != nil {
			out := result.Artifact.Thunk(nil)
			fmt.Printf("ok %v\n", out)
		}
	}
}

func isBareExpression(line string) bool {
	return !strings.HasPrefix(strings.TrimSpace(line), ":")
}

// wrapIfBareExpression wraps a non-definition line in the synthetic
// replEntryWord definition so every accumulated history entry is a
// well-formed word definition the parser already knows how to handle.
func wrapIfBareExpression(line string) string {
	if isBareExpression(line) {
		return fmt.Sprintf(": %s %s ;", replEntryWord, line)
	}
	return line
}
