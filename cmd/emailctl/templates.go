package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/templates"
)

func runTemplates(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "push" {
		return errors.New("usage: emailctl templates push -dir <dir>")
	}

	fs := flag.NewFlagSet("templates push", flag.ContinueOnError)
	dir := fs.String("dir", "", "template root, laid out like TEMPLATES_DIR")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("-dir is required")
	}

	stack, err := templates.NewDefaultStack(ctx, slog.Default())
	if err != nil {
		return err
	}
	defer stack.Close()

	pushed, err := stack.Push(ctx, os.DirFS(*dir))
	slog.Default().Info("templates pushed", "bucket", stack.Bucket, "count", len(pushed))
	return err
}
