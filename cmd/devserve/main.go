package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/matthewmueller/devserve"
)

const (
	exitUsage    = -1
	exitNotFound = -2
	exitFailed   = 1
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, devserve.SystemBrowser))
}

func run(ctx context.Context, args []string, stderr io.Writer, browser devserve.Opener) int {
	fset := flag.NewFlagSet("devserve", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprintln(stderr, "usage: devserve [flags] <file>")
		fset.PrintDefaults()
	}
	configPath := fset.String("config", "", "path to a YAML config file")
	host := fset.String("host", "", "address to listen on")
	port := fset.Int("port", -1, "file server port")
	reloadPort := fset.Int("reload-port", -1, "reload socket port")
	open := fset.Bool("open", true, "open the browser once the servers are ready")
	debounce := fset.Duration("debounce", -1, "coalesce changes within this window")
	verbose := fset.Bool("verbose", false, "log debug messages")
	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	level := log.InfoLevel
	if *verbose {
		level = log.DebugLevel
	}
	logger := slog.New(log.NewWithOptions(stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}))

	if fset.NArg() < 1 {
		fmt.Fprintln(stderr, "Please provide the name of a file to serve")
		fset.Usage()
		return exitUsage
	}
	target := fset.Arg(0)
	if _, err := os.Stat(target); err != nil {
		fmt.Fprintf(stderr, "Requested file %q does not exist\n", target)
		return exitNotFound
	}

	config := devserve.DefaultConfig()
	if *configPath != "" {
		loaded, err := devserve.LoadConfig(*configPath)
		if err != nil {
			logger.Error("devserve: unable to load config", "error", err)
			return exitFailed
		}
		config = loaded
	}
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			config.Host = *host
		case "port":
			config.Port = *port
		case "reload-port":
			config.ReloadPort = *reloadPort
		case "open":
			config.Open = *open
		case "debounce":
			config.Debounce = *debounce
		}
	})

	session, err := devserve.Start(ctx, target, config,
		devserve.WithLogger(logger),
		devserve.WithBrowser(browser),
	)
	if err != nil {
		logger.Error("devserve: unable to start", "error", err)
		return exitFailed
	}
	fmt.Fprintln(stderr, "Server running at: "+session.FileURL())
	if err := session.Wait(); err != nil {
		logger.Error("devserve: server failed", "error", err)
		return exitFailed
	}
	return 0
}
