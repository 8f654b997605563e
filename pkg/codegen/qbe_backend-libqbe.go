//go:build !windows

package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/ir"
	"modernc.org/libqbe"
)

func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	var asmBuf bytes.Buffer
	if err = libqbe.Main(cfg.QbeTarget, "input.ssa", strings.NewReader(qbeIR), &asmBuf, nil); err != nil {
		return nil, fmt.Errorf("qbe: %w\n--- generated IL ---\n%s", err, qbeIR)
	}
	return &asmBuf, nil
}
