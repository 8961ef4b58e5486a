//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewmueller/devserve"
)

// reloadOnHangup reloads connected browsers whenever the process gets SIGHUP
func reloadOnHangup(session *devserve.Session) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			session.Reload(context.Background())
		}
	}()
}
