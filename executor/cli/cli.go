package cli

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pure-golang/emails/executor"
)

var _ executor.Executor = (*Executor)(nil)

// Executor runs a single configured command.
type Executor struct {
	cmd     string
	timeout time.Duration
	closed  bool
	mx      sync.RWMutex
}

func New(cfg Config) *Executor {
	return &Executor{
		cmd:     cfg.Command,
		timeout: cfg.Timeout,
	}
}

// Start checks that the command can be found.
func (e *Executor) Start() error {
	if _, err := exec.LookPath(e.cmd); err != nil {
		return errors.Wrapf(err, "command %s not found", e.cmd)
	}
	return nil
}

// Execute runs the command and returns its stdout. On failure the error
// carries the command's stderr.
func (e *Executor) Execute(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	stdout, stderr, err := e.run(ctx, stdin, args)
	if err != nil {
		return stdout, errors.Wrapf(err, "command failed: %s", bytes.TrimSpace(stderr))
	}
	return stdout, nil
}

func (e *Executor) run(ctx context.Context, stdin io.Reader, args []string) ([]byte, []byte, error) {
	ctx, span := tracer.Start(ctx, "executor.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("executor.command", e.cmd))

	e.mx.RLock()
	defer e.mx.RUnlock()

	if e.closed {
		return nil, nil, errors.New("executor is closed")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.cmd, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	name := filepath.Base(e.cmd)
	if err != nil {
		recordExecution(name, "error", time.Since(started).Seconds())
		recordError(span, err)
		return stdout.Bytes(), stderr.Bytes(), err
	}

	recordExecution(name, "ok", time.Since(started).Seconds())
	span.SetStatus(codes.Ok, "")
	return stdout.Bytes(), nil, nil
}

// Close makes further Execute calls fail. Closing twice is not an error.
func (e *Executor) Close() error {
	e.mx.Lock()
	defer e.mx.Unlock()

	e.closed = true
	return nil
}
