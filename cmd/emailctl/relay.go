package main

import (
	"context"
	"log/slog"

	"github.com/pure-golang/emails/mail/transport"
)

func runRelay(ctx context.Context, _ []string) error {
	relay, err := transport.NewRelay(ctx, slog.Default())
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	err = relay.Close()
	<-done
	return err
}
