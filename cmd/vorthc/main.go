/*
Vorthc compiles vorth source into a runnable artifact, or starts an
interactive REPL session over it.

Usage:

	vorthc [flags] [FILE...]
	vorthc repl [flags]

The flags are:

	-v, --version
		Give the current version of vorthc and then exit.

	-p, --project FILE
		Use the provided vorthc.toml project file. Defaults to "vorthc.toml"
		in the current working directory.

	-O, --opt LEVEL
		Optimization level to run: O0, O1, O2, or O3. Overrides the project
		file's "opt" setting.

	-b, --backend NAME
		Backend to emit with: "direct" or "llvm". Overrides the project
		file's "backend" setting.

	--type-check-only
		Run the pipeline through the stack-effect inferencer and report
		diagnostics, without emitting an artifact.

Once a REPL session has started, each line is compiled and, for a word
definition, added to the running session's word table; for a bare
expression, compiled and run immediately via the direct backend. Type
"QUIT" to exit.
*/
package main

import (
	"fmt"
	"os"

	"github.com/dekarrin/vorth/internal/codegen"
	"github.com/dekarrin/vorth/internal/config"
	"github.com/dekarrin/vorth/internal/optimize"
	"github.com/dekarrin/vorth/internal/sema"
	"github.com/dekarrin/vorth/internal/session"
	"github.com/dekarrin/vorth/internal/version"
	"github.com/spf13/pflag"
)

const (
	ExitSuccess = iota
	ExitCompileError
	ExitInitError
)

// diagnosticWidth is the column width diagnostics are wrapped to when
// printed to the terminal. A fixed width rather than a terminal-size probe
// keeps piped/redirected output stable.
const diagnosticWidth = 100

var (
	returnCode    int
	flagVersion   = pflag.BoolP("version", "v", false, "Give the current version of vorthc and then exit.")
	flagProject   = pflag.StringP("project", "p", "vorthc.toml", "Use the given project file.")
	flagOpt       = pflag.StringP("opt", "O", "", "Optimization level: O0, O1, O2, or O3.")
	flagBackend   = pflag.StringP("backend", "b", "", "Backend to emit with: direct or llvm.")
	flagTypeCheck = pflag.Bool("type-check-only", false, "Only run diagnostics through the stack-effect inferencer.")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) > 0 && args[0] == "repl" {
		runREPL()
		return
	}

	runBuild(args)
}

func optLevel(s string) optimize.Level {
	switch s {
	case "O0":
		return optimize.O0
	case "O2":
		return optimize.O2
	case "O3":
		return optimize.O3
	default:
		return optimize.O1
	}
}

func backendFor(name string) codegen.Backend {
	if name == "llvm" {
		return codegen.NewLLVMBackend()
	}
	return codegen.NewDirectBackend()
}

func redefinePolicy(s string) sema.RedefinitionPolicy {
	switch s {
	case "error":
		return sema.RedefineError
	case "shadow":
		return sema.RedefineShadow
	default:
		return sema.RedefineWarn
	}
}

func runBuild(files []string) {
	proj := config.Default()
	if data, err := config.Load(*flagProject); err == nil {
		proj = data
	}

	if *flagOpt != "" {
		proj.Opt = config.OptLevel(*flagOpt)
	}
	if *flagBackend != "" {
		proj.Backend = config.Backend(*flagBackend)
	}
	if len(files) > 0 {
		proj.Sources = files
	}

	if err := proj.Validate(); err != nil && !*flagTypeCheck {
		fmt.Fprintf(os.Stderr, "ERROR: invalid project config: %s\n", err)
		returnCode = ExitInitError
		return
	}
	if len(proj.Sources) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: no source files given\n")
		returnCode = ExitInitError
		return
	}

	sess := session.New(proj.Sources[0], redefinePolicy(proj.Redefine))

	opts := session.Options{
		Mode:           session.ModeFull,
		RedefinePolicy: redefinePolicy(proj.Redefine),
		OptLevel:       optLevel(string(proj.Opt)),
		Backend:        backendFor(string(proj.Backend)),
		BackendMode:    codegen.ModeAOT,
		Entry:          proj.Entry,
		EmitMetrics:    true,
	}
	if !opts.Backend.Supports(opts.BackendMode) {
		opts.BackendMode = codegen.ModeJIT
	}
	if *flagTypeCheck {
		opts.Mode = session.ModeTypeCheckOnly
		opts.Backend = nil
	}

	hadErrors := false
	for _, file := range proj.Sources {
		source, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: %s\n", file, err)
			returnCode = ExitInitError
			return
		}

		result := sess.Compile(source, opts)
		for _, d := range result.Diagnostics {
			fmt.Fprintln(os.Stderr, d.Render(diagnosticWidth))
		}
		if result.HasErrors() {
			hadErrors = true
		}
	}

	if hadErrors {
		returnCode = ExitCompileError
	}
}
