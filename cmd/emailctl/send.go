package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/email"
)

func runSend(ctx context.Context, args []string) error {
	req, err := parseSend(args)
	if err != nil {
		return err
	}

	cfg, err := email.LoadConfig()
	if err != nil {
		return err
	}
	m, err := email.InitDefault(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to init email manager")
	}
	defer m.Close()

	if err := req.Send(ctx, m); err != nil {
		return err
	}
	slog.Default().Info("email sent", "template", req.Template, "recipients", len(req.To))
	return nil
}

func parseSend(args []string) (email.Request, error) {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)

	var (
		to  listFlag
		tpl = email.Args{}
		req email.Request
	)
	fs.Var(&to, "to", "recipient address, repeatable or comma separated")
	fs.StringVar(&req.Subject, "subject", "", "subject, placeholders allowed")
	fs.StringVar(&req.Heading, "heading", "", "heading, placeholders allowed")
	fs.StringVar(&req.Template, "template", "", "template name under emails/, without extension")
	fs.StringVar(&req.Type, "type", "html", "html, plain or multipart")
	fs.Var(argsFlag(tpl), "arg", "template argument key=value, repeatable")

	if err := fs.Parse(args); err != nil {
		return req, err
	}
	req.To = to
	if len(tpl) > 0 {
		req.Args = tpl
	}
	return req, req.Validate()
}
