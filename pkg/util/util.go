// Package util provides the compiler's diagnostic machinery: source file
// records for rich error messages, caret underlining, and warning gating.
package util

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/token"
)

type DiagKind int

const (
	DiagLex DiagKind = iota
	DiagParse
	DiagCodegen
	DiagIO
)

func (k DiagKind) String() string {
	switch k {
	case DiagLex:
		return "lex error"
	case DiagParse:
		return "parse error"
	case DiagCodegen:
		return "codegen error"
	case DiagIO:
		return "i/o error"
	}
	return "error"
}

// Diagnostic is the structured compile-time error value that unwinds to the
// driver: kind + position + message.
type Diagnostic struct {
	Kind DiagKind
	Tok  token.Token
	Msg  string
}

func (d *Diagnostic) Error() string {
	filename, line, col := findFileAndLine(d.Tok)
	return fmt.Sprintf("%s:%d:%d: %s: %s", filename, line, col, d.Kind, d.Msg)
}

// Errorf builds a Diagnostic without reporting it.
func Errorf(kind DiagKind, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files so diagnostics
// can print the offending line.
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

var colorEnabled = term.IsTerminal(int(os.Stderr.Fd()))

// ForceColor overrides terminal detection, mainly for tests.
func ForceColor(on bool) { colorEnabled = on }

func color(code string) string {
	if !colorEnabled {
		return ""
	}
	return code
}

const (
	cRed    = "\033[31m"
	cYellow = "\033[33m"
	cGreen  = "\033[32m"
	cNone   = "\033[0m"
)

// findFileAndLine converts a token to a file-specific location.
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "<input>", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the position.
func printErrorLine(stream *os.File, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(stream, "  %s\n", string(content[lineStart:lineEnd]))

	pad := tok.Column - 1
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(stream, "  %s%s^", strings.Repeat(" ", pad), color(cGreen))
	if tok.Len > 1 {
		fmt.Fprint(stream, strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(stream, color(cNone))
}

// Report prints a diagnostic with the offending source line.
func Report(d *Diagnostic) {
	filename, line, col := findFileAndLine(d.Tok)
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %serror:%s %s\n",
		filename, line, col, color(cRed), color(cNone), d.Msg)
	printErrorLine(os.Stderr, d.Tok)
}

// Warn prints a formatted warning if the corresponding warning is enabled.
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if cfg != nil && !cfg.IsWarningEnabled(wt) {
		return
	}
	filename, line, col := findFileAndLine(tok)
	name := ""
	if cfg != nil {
		name = cfg.Warnings[wt].Name
	}
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %swarning:%s ", filename, line, col, color(cYellow), color(cNone))
	fmt.Fprintf(os.Stderr, format, args...)
	if name != "" {
		fmt.Fprintf(os.Stderr, " [-W%s]", name)
	}
	fmt.Fprintln(os.Stderr)
	printErrorLine(os.Stderr, tok)
}
