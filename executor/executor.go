package executor

import (
	"context"
	"io"
)

// Executor runs an external command, optionally feeding it stdin.
type Executor interface {
	// Execute runs the command with args. A nil stdin means no input.
	Execute(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error)
	io.Closer
}
