package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/xplshn/tacc/pkg/cli"
	"github.com/xplshn/tacc/pkg/compiler"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/util"
	"golang.org/x/term"
)

func main() {
	app := cli.NewApp("tacc")
	app.Synopsis = "[options] <input.tac> ..."
	app.Description = "A three-address-code compiler for a small expression language with ints, bools and functions. Emits NASM x86-64 or QBE."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/tacc>"

	var (
		outFile    string
		std        string
		backend    string
		qbeTarget  string
		linkerArgs []string
		pedantic   bool
		dumpIR     bool
		asmOnly    bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "a.out", "Place the output into <file>.", "file")
	fs.String(&backend, "target", "t", "nasm", "Select the backend (nasm, qbe).", "backend")
	fs.String(&qbeTarget, "qbe-target", "", "", "Set the QBE target ABI (defaults to the host).", "abi")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the three-address code and exit.")
	fs.Bool(&asmOnly, "assembly", "S", false, "Write the assembly to <file> instead of linking.")
	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")
	fs.String(&std, "std", "", "modern", "Specify language standard (modern, classic)", "std")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue every warning the current std knows about.")

	cfg := config.NewConfig()
	cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		util.SetColor(term.IsTerminal(int(os.Stderr.Fd())))
		if pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}
		if err := cfg.ApplyStd(std); err != nil {
			util.Error(token.Token{}, "%v", err)
		}
		// -W/-F flags override the standard, in command-line order
		cfg.ProcessFlags(func(fn func(name string)) { fs.Visit(os.Args[1:], fn) })

		if err := cfg.SetBackend(backend); err != nil {
			util.Error(token.Token{}, "%v", err)
		}
		if cfg.Backend == "qbe" {
			cfg.SetTarget(runtime.GOOS, runtime.GOARCH, qbeTarget)
		}
		if len(inputFiles) == 0 {
			util.Error(token.Token{}, "no input files specified.")
		}

		records := readFiles(inputFiles)
		util.SetSourceFiles(records)

		fmt.Printf("Compiling %d source file(s) with the '%s' backend...\n", len(records), cfg.Backend)
		var res *compiler.Result
		var err error
		if dumpIR {
			res, err = compiler.Lower(records, cfg)
		} else {
			res, err = compiler.Compile(records, cfg)
		}
		util.PrintDiagnostics(os.Stderr, res.Diagnostics)
		if err != nil {
			var stageErr *compiler.StageError
			if errors.As(err, &stageErr) {
				return err
			}
			util.Error(token.Token{}, "%v", err)
		}

		if dumpIR {
			fmt.Print(res.Program.String())
			return nil
		}
		if asmOnly {
			if err := os.WriteFile(outFile, res.Assembly.Bytes(), 0o644); err != nil {
				util.Error(token.Token{}, "could not write '%s': %v", outFile, err)
			}
			fmt.Printf("Wrote assembly to '%s'\n", outFile)
			return nil
		}

		fmt.Printf("Linking to create '%s'...\n", outFile)
		if err := assembleAndLink(outFile, res.Assembly.String(), cfg.Backend, linkerArgs); err != nil {
			util.Error(token.Token{}, "assembler/linker failed: %v", err)
		}
		fmt.Println("Done!")
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func readFiles(paths []string) []util.SourceFileRecord {
	var records []util.SourceFileRecord
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			util.Error(token.Token{FileIndex: -1}, "could not read file '%s': %v", path, err)
		}
		records = append(records, util.SourceFileRecord{Name: path, Content: []rune(string(content))})
	}
	return records
}

// assembleAndLink turns asm into an executable: NASM output goes through
// nasm first, QBE output is already GNU assembler syntax and goes to cc.
func assembleAndLink(outFile, asm, backend string, linkerArgs []string) error {
	suffix := ".s"
	if backend == "nasm" {
		suffix = ".asm"
	}
	asmFile, err := os.CreateTemp("", "tacc-main-*"+suffix)
	if err != nil {
		return fmt.Errorf("failed to create temp file for asm: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asm); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write asm: %w", err)
	}
	asmFile.Close()

	input := asmFile.Name()
	if backend == "nasm" {
		input = strings.TrimSuffix(asmFile.Name(), suffix) + ".o"
		defer os.Remove(input)
		cmd := exec.Command("nasm", "-felf64", "-o", input, asmFile.Name())
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("nasm command failed: %w\nOutput:\n%s", err, string(output))
		}
	}

	ccArgs := append([]string{"-no-pie", "-o", outFile, input}, linkerArgs...)
	cmd := exec.Command("cc", ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}
