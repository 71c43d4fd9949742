package cli

import "time"

// Config describes the command to run.
type Config struct {
	// Command is a binary name looked up in PATH or an absolute path, e.g. "/usr/sbin/sendmail".
	Command string
	// Timeout bounds one execution; zero means the caller's context only.
	Timeout time.Duration
}
