package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/matthewmueller/devserve"
)

// Drives a session from another program, reloading on SIGHUP (where the
// platform has it) as well as on file changes.
func main() {
	log := slog.Default()
	config := devserve.DefaultConfig()
	config.Open = false
	session, err := devserve.Start(context.Background(), "example/public/index.html", config, devserve.WithLogger(log))
	if err != nil {
		log.Error("Error starting session", "error", err)
		os.Exit(1)
	}
	log.Info("Server started at " + session.FileURL())
	reloadOnHangup(session)
	if err := session.Wait(); err != nil {
		log.Error("Error in server", "error", err)
		os.Exit(1)
	}
}
