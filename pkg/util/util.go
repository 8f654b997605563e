package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	au          = aurora.NewAurora(true)
)

// SetColor turns ANSI colors in diagnostics on or off
func SetColor(enabled bool) { au = aurora.NewAurora(enabled) }

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(stream io.Writer, tok token.Token) {
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

	col := tok.Column
	if col < 1 {
		col = 1
	}
	marker := "^"
	if tok.Len > 1 {
		marker += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(stream, "  %s%s\n", strings.Repeat(" ", col-1), au.Green(marker))
}

// PrintDiagnostic writes d prefixed with its file name, followed by the offending source line
func PrintDiagnostic(stream io.Writer, d diag.Diagnostic) {
	filename, _, _ := findFileAndLine(d.Pos)
	if d.Severity == diag.Warning {
		fmt.Fprintf(stream, "%s%s %s\n", filename, d.String(), au.Yellow("[-W"+d.Warning+"]"))
	} else {
		fmt.Fprintf(stream, "%s%s\n", filename, d.String())
	}
	printErrorLine(stream, d.Pos)
}

// PrintDiagnostics prints every diagnostic in order and returns how many were errors
func PrintDiagnostics(stream io.Writer, ds []diag.Diagnostic) int {
	errors := 0
	for _, d := range ds {
		PrintDiagnostic(stream, d)
		if d.Severity == diag.Error {
			errors++
		}
	}
	return errors
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %s ", filename, line, col, au.Red("error:"))
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	printErrorLine(os.Stderr, tok)
	os.Exit(1)
}

// AlignUp rounds n up to the nearest multiple of align
func AlignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
