package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/matthewmueller/devserve"
)

// buffer is a goroutine-safe bytes.Buffer
type buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMissingArgument(t *testing.T) {
	is := is.New(t)
	stderr := new(buffer)
	code := run(context.Background(), nil, stderr, devserve.NoBrowser)
	is.Equal(code, -1)
	is.True(strings.Contains(stderr.String(), "Please provide the name of a file to serve"))
	is.True(!strings.Contains(stderr.String(), "Server running at"))
}

func TestMissingFile(t *testing.T) {
	is := is.New(t)
	stderr := new(buffer)
	missing := filepath.Join(t.TempDir(), "missing.html")
	code := run(context.Background(), []string{missing}, stderr, devserve.NoBrowser)
	is.Equal(code, -2)
	is.True(strings.Contains(stderr.String(), "does not exist"))
	is.True(!strings.Contains(stderr.String(), "Server running at"))
}

func TestBadConfig(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "index.html")
	is.NoErr(os.WriteFile(target, []byte("<html><body></body></html>"), 0644))
	config := filepath.Join(dir, "devserve.yaml")
	is.NoErr(os.WriteFile(config, []byte("port: [\n"), 0644))
	code := run(context.Background(), []string{"-config", config, target}, new(buffer), devserve.NoBrowser)
	is.Equal(code, 1)
}

func TestServeUntilCanceled(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "index.html")
	is.NoErr(os.WriteFile(target, []byte("<html><body></body></html>"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stderr := new(buffer)
	var opened []string
	browser := devserve.OpenerFunc(func(url string) error {
		opened = append(opened, url)
		return nil
	})
	result := make(chan int, 1)
	go func() {
		result <- run(ctx, []string{"-host", "127.0.0.1", "-port", "0", "-reload-port", "0", target}, stderr, browser)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(stderr.String(), "Server running at: http://127.0.0.1:") {
		if time.Now().After(deadline) {
			t.Fatalf("server never started:\n%s", stderr.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case code := <-result:
		is.Equal(code, 0)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for devserve to exit")
	}
	is.Equal(len(opened), 1)
}
