package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		log.Error().Str("cmd", name).Str("args", strings.Join(args, " ")).Int64("duration_ms", dur.Milliseconds()).
			Err(err).Str("stderr", truncate(errb.String(), 8<<10)).Msg("exec failed")
	} else {
		log.Debug().Str("cmd", name).Str("args", strings.Join(args, " ")).Int64("duration_ms", dur.Milliseconds()).
			Int("stdout_bytes", out.Len()).Int("stderr_bytes", errb.Len()).Msg("exec ok")
	}

	return out.Bytes(), errb.Bytes(), err
}

// lookPath reports a missing binary as a probe failure.
func lookPath(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%s not found on PATH", bin)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// commandError folds stderr into err.
func commandError(name string, stderr []byte, err error) error {
	msg := strings.TrimSpace(truncate(string(stderr), 512))
	if msg == "" {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %s", name, err, msg)
}
