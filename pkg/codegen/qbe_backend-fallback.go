//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/ir"
)

// Without libqbe the IL is piped through the system's qbe
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	if _, err = exec.LookPath("qbe"); err != nil {
		return nil, fmt.Errorf("qbe not found in PATH: %w", err)
	}

	input, err := os.CreateTemp("", "tacc-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(input.Name())
	if _, err = input.WriteString(qbeIR); err != nil {
		input.Close()
		return nil, err
	}
	input.Close()

	var asmBuf, stderr bytes.Buffer
	cmd := exec.Command("qbe", "-t", cfg.QbeTarget, input.Name())
	cmd.Stdout, cmd.Stderr = &asmBuf, &stderr
	if err = cmd.Run(); err != nil {
		return nil, fmt.Errorf("qbe: %w: %s\n--- generated IL ---\n%s", err, stderr.String(), qbeIR)
	}
	return &asmBuf, nil
}
