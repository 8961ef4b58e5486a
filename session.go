package devserve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session's logger
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBrowser replaces the system browser
func WithBrowser(browser Opener) Option {
	return func(s *Session) {
		if browser != nil {
			s.browser = browser
		}
	}
}

// Session serves a single target file and reloads connected browsers when
// it changes. It owns both servers, the watcher and the readiness count.
type Session struct {
	targetPath string
	rootDir    string
	config     Config
	log        *slog.Logger
	browser    Opener

	mu      sync.Mutex
	files   *FileServer
	reload  *Broadcaster
	ready   readiness
	script  atomic.Value // []byte
	eg      *errgroup.Group
	cancel  context.CancelFunc
	signals chan os.Signal
	stopped chan struct{}
	done    chan struct{}
	err     error
}

// Start serves target and begins watching it. It returns once both servers
// are listening; use Wait to block until the session shuts down.
func Start(ctx context.Context, target string, config Config, options ...Option) (*Session, error) {
	if !filepath.IsAbs(target) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("devserve: unable to resolve %q: %w", target, err)
		}
		target = filepath.Join(wd, target)
	}
	target = filepath.Clean(target)
	s := &Session{
		targetPath: target,
		rootDir:    filepath.Dir(target),
		config:     config,
		log:        slog.Default(),
		browser:    SystemBrowser,
		signals:    make(chan os.Signal, 1),
		stopped:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	s.ready.onReady = s.openBrowser

	// Watch before serving so edits made as soon as the browser opens count
	watcher, err := watchTarget(s.targetPath, s.log)
	if err != nil {
		return nil, err
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.eg, ctx = errgroup.WithContext(ctx)
	if err := s.startFiles(); err != nil {
		watcher.close()
		s.cancel()
		return nil, err
	}
	if err := s.startReload(); err != nil {
		s.mu.Lock()
		s.closeFiles()
		s.mu.Unlock()
		watcher.close()
		s.cancel()
		return nil, err
	}
	s.eg.Go(func() error {
		return watcher.run(ctx, s.config.Debounce, func() { s.Reload(ctx) })
	})

	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-s.signals:
			s.log.Info("devserve: received signal", "signal", sig.String())
		case <-ctx.Done():
			// canceled by the parent, Shutdown or a failing server
		}
		s.Shutdown()
	}()
	go func() {
		err := s.eg.Wait()
		<-s.stopped
		s.err = err
		close(s.done)
	}()
	return s, nil
}

func (s *Session) startFiles() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFiles()
	files := NewFileServer(s.config.fileAddr(), s.rootDir, s.targetPath, s.log)
	files.Client = s.clientScript
	if err := files.Listen(); err != nil {
		return err
	}
	s.files = files
	s.eg.Go(files.Serve)
	s.log.Info("devserve: serving files", "url", files.URL(), "target", s.targetPath)
	s.ready.up()
	return nil
}

func (s *Session) startReload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeReload()
	reload := NewBroadcaster(s.config.reloadAddr(), s.log)
	if err := reload.Listen(); err != nil {
		return err
	}
	s.reload = reload
	s.script.Store(ClientScript(reload.URL()))
	s.eg.Go(reload.Serve)
	s.log.Info("devserve: serving reload sockets", "url", reload.URL())
	s.ready.up()
	return nil
}

// closeFiles expects s.mu to be held
func (s *Session) closeFiles() {
	if s.files == nil {
		return
	}
	if err := s.files.Close(); err != nil {
		s.log.Debug("devserve: unable to close file server", "error", err)
	}
	s.files = nil
	s.ready.down()
}

// closeReload expects s.mu to be held
func (s *Session) closeReload() {
	if s.reload == nil {
		return
	}
	if err := s.reload.Close(); err != nil {
		s.log.Debug("devserve: unable to close reload server", "error", err)
	}
	s.reload = nil
	s.ready.down()
}

// openBrowser runs when both servers are ready, while s.mu is held by the
// server that became ready last.
func (s *Session) openBrowser() {
	if !s.config.Open || s.files == nil {
		return
	}
	url := s.files.URL()
	s.log.Info("devserve: opening browser", "url", url)
	if err := s.browser.Open(url); err != nil {
		s.log.Warn("devserve: unable to open browser", "url", url, "error", err)
	}
}

func (s *Session) clientScript() []byte {
	if script, ok := s.script.Load().([]byte); ok {
		return script
	}
	return ClientScript(fmt.Sprintf("ws://%s:%d", s.config.host(), s.config.ReloadPort))
}

// Reload signals every connected browser to reload. It does nothing once
// the reload server has been closed.
func (s *Session) Reload(ctx context.Context) {
	s.mu.Lock()
	reload := s.reload
	s.mu.Unlock()
	if reload == nil {
		return
	}
	reload.Reload(ctx)
}

// Shutdown closes the reload server, then the file server, then stops
// watching. Calling it again is a no-op.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil && s.reload == nil {
		return
	}
	s.log.Info("devserve: shutting down")
	s.closeReload()
	s.closeFiles()
	signal.Stop(s.signals)
	s.cancel()
	close(s.stopped)
}

// Wait blocks until the session has shut down. It returns the error that
// caused the shutdown, if any.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Done is closed once the session has fully shut down
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// TargetPath is the absolute path of the served file
func (s *Session) TargetPath() string {
	return s.targetPath
}

// RootDir is the directory static files are served from
func (s *Session) RootDir() string {
	return s.rootDir
}

// FileURL is where the target is served, or empty after shutdown
func (s *Session) FileURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		return ""
	}
	return s.files.URL()
}

// ReloadURL is where browsers connect for reloads, or empty after shutdown
func (s *Session) ReloadURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reload == nil {
		return ""
	}
	return s.reload.URL()
}

// Ready returns how many of the two servers are listening
func (s *Session) Ready() int {
	return s.ready.value()
}

// Subscribers returns the number of connected browsers
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reload == nil {
		return 0
	}
	return s.reload.Subscribers()
}
