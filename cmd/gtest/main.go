// gtest compiles every tests/*.tac program with tacc, runs the result with a
// few argument vectors and compares everything against the program's golden
// .<name>.tac.json file.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

type Golden struct {
	Hash    string    `json:"hash"`
	Compile Execution `json:"compile"`
	Runs    []TestRun `json:"runs"`
}

type FileTestResult struct {
	File    string  `json:"file"`
	Status  string  `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string  `json:"message,omitempty"`
	Diff    string  `json:"diff,omitempty"`
	Actual  *Golden `json:"actual,omitempty"`
}

var (
	compiler       = flag.String("compiler", "./tacc", "Path to the compiler under test.")
	compilerArgs   = flag.String("compiler-args", "", "Extra compiler arguments (space-separated).")
	generateGolden = flag.Bool("generate-golden", false, "Write golden files for the selected sources instead of testing.")
	testFiles      = flag.String("test-files", "tests/*.tac", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	goldenDir      = flag.String("dir", "", "Directory holding golden files (defaults to the source file's).")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Print diffs of failing tests.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

// argument vectors every program is run with; argc/argv programs see them
var testCases = []TestRun{
	{Name: "no_args"},
	{Name: "one_arg", Args: []string{"7"}},
	{Name: "three_args", Args: []string{"3", "-4", "5"}},
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	files, err := expandGlobPatterns(*testFiles, strings.Fields(*skipFiles))
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Fatalf("%s[ERROR]%s No test files matched '%s'\n", cRed, cNone, *testFiles)
	}

	if *generateGolden {
		for _, file := range files {
			if err := writeGolden(file, tempDir); err != nil {
				log.Fatalf("%s[ERROR]%s %s: %v\n", cRed, cNone, file, err)
			}
			log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenPath(file))
		}
		return
	}

	results := runSuite(files, tempDir)
	printSummary(results)
	if err := writeJSONReport(results); err != nil {
		log.Printf("%s[WARN]%s %v\n", cYellow, cNone, err)
	}
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

// setupInterruptHandler cleans up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if *goldenDir != "" {
		return filepath.Join(*goldenDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func writeGolden(file, tempDir string) error {
	hash, err := hashFile(file)
	if err != nil {
		return err
	}
	golden, err := compileAndRun(file, tempDir, hash)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		return err
	}
	if *goldenDir != "" {
		if err := os.MkdirAll(*goldenDir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(goldenPath(file), data, 0o644)
}

// runSuite tests files on *jobs workers. Sources with identical content are
// compiled once; later copies are reported as SKIP.
func runSuite(files []string, tempDir string) []*FileTestResult {
	results := make([]*FileTestResult, len(files))
	seen := make(map[string]string)
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(*jobs, 1))

	for i, file := range files {
		hash, err := hashFile(file)
		if err != nil {
			results[i] = &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
			continue
		}
		if original, dup := seen[hash]; dup {
			results[i] = &FileTestResult{File: file, Status: "SKIP", Message: "identical to " + original}
			continue
		}
		seen[hash] = file

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, file, hash string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = testFile(file, tempDir, hash)
			if *verbose {
				log.Printf("%s%-5s%s %s\n", statusColor(results[i].Status), results[i].Status, cNone, file)
			}
		}(i, file, hash)
	}
	wg.Wait()
	return results
}

func testFile(file, tempDir, hash string) *FileTestResult {
	data, err := os.ReadFile(goldenPath(file))
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "no golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("bad golden file: %v", err)}
	}

	actual, err := compileAndRun(file, tempDir, hash)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}

	res := &FileTestResult{File: file, Status: "PASS", Actual: actual}
	if golden.Hash != hash {
		res.Message = "source changed since the golden file was written"
	}
	if diff := compareGolden(&golden, actual); diff != "" {
		res.Status, res.Diff = "FAIL", diff
	}
	return res
}

// compareGolden diffs everything but timings
func compareGolden(want, got *Golden) string {
	ignore := cmp.FilterPath(func(p cmp.Path) bool {
		switch p.Last().String() {
		case ".Duration", ".Hash":
			return true
		}
		return false
	}, cmp.Ignore())
	return cmp.Diff(want, got, ignore)
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	err := cmd.Run()
	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut, res.ExitCode = true, -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

// compileAndRun builds file into tempDir/<hash> and runs every test case.
// A failed compilation is a result too: its diagnostics are compared.
func compileAndRun(file, tempDir, hash string) (*Golden, error) {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	binary := filepath.Join(tempDir, hash)
	args := append([]string{"-o", binary}, strings.Fields(*compilerArgs)...)
	compile := executeCommand(ctx, *compiler, append(args, file)...)
	if compile.ExitCode == -2 {
		return nil, fmt.Errorf("could not run %s: %s", *compiler, compile.Stderr)
	}
	compile.Stdout = ""

	golden := &Golden{Hash: hash, Compile: compile}
	if compile.ExitCode != 0 || compile.TimedOut {
		return golden, nil
	}

	for _, tc := range testCases {
		runCtx, runCancel := context.WithTimeout(context.Background(), *timeout)
		tc.Result = executeCommand(runCtx, binary, tc.Args...)
		runCancel()
		golden.Runs = append(golden.Runs, tc)
	}
	return golden, nil
}

func statusColor(status string) string {
	switch status {
	case "PASS":
		return cGreen
	case "SKIP":
		return cYellow
	}
	return cRed
}

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		if r.Status == "PASS" && r.Message == "" {
			continue
		}
		fmt.Printf("%s[%s]%s %s", statusColor(r.Status), r.Status, cNone, r.File)
		if r.Message != "" {
			fmt.Printf(": %s", r.Message)
		}
		fmt.Println()
		if r.Diff != "" && *verbose {
			fmt.Println(r.Diff)
		}
	}
	fmt.Printf("\n%s%sSummary:%s %d passed, %d failed, %d errors, %d skipped (%d total)\n",
		cBold, cCyan, cNone, counts["PASS"], counts["FAIL"], counts["ERROR"], counts["SKIP"], len(results))
}

func writeJSONReport(results []*FileTestResult) error {
	report := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		report[r.File] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(*outputJSON, data, 0o644)
}

func expandGlobPatterns(patterns string, skip []string) ([]string, error) {
	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[filepath.Clean(s)] = true
	}
	unique := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		for _, m := range matches {
			if !skipped[filepath.Clean(m)] {
				unique[m] = true
			}
		}
	}
	files := make([]string, 0, len(unique))
	for f := range unique {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}
