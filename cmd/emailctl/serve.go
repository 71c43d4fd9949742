package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/email"
	"github.com/pure-golang/emails/env"
	"github.com/pure-golang/emails/httpserver/api"
	"github.com/pure-golang/emails/httpserver/std"
)

func runServe(ctx context.Context, _ []string) error {
	var scfg std.Config
	if err := env.InitConfig(&scfg); err != nil {
		return errors.Wrap(err, "failed to init mail api config")
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

	srv := std.New(scfg, api.NewHandler(m, nil), nil)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if err := srv.Close(); err != nil {
		return err
	}
	return <-errc
}
