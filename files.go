package devserve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/matthewmueller/socket"
)

var errOutsideRoot = errors.New("devserve: path is outside of the root directory")

// NewFileServer serves target at "/" and the rest of root beneath it
func NewFileServer(addr, root, target string, log *slog.Logger) *FileServer {
	if log == nil {
		log = slog.Default()
	}
	return &FileServer{
		Mime:   MimeType,
		Client: func() []byte { return ClientScript(fmt.Sprintf("ws://%s:%d", DefaultHost, DefaultReloadPort)) },
		addr:   addr,
		root:   root,
		target: target,
		log:    log,
	}
}

// FileServer is the HTTP side of a dev session. It only answers GET
// requests and injects the reload client into HTML responses.
type FileServer struct {
	// Mime resolves the content type of a served path
	Mime func(path string) string
	// Client returns the script served at ClientPath
	Client func() []byte

	addr   string
	root   string
	target string
	log    *slog.Logger

	ln     net.Listener
	server *http.Server
	once   sync.Once
}

// Handler returns the file handler wrapped with client injection
func (f *FileServer) Handler() http.Handler {
	return Inject(http.HandlerFunc(f.serveFile))
}

func (f *FileServer) serveFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		io.WriteString(w, "Method not allowed.")
		return
	}
	name, data, err := f.resolve(r.URL.Path)
	if err != nil {
		f.log.Debug("devserve: file not found", "path", r.URL.Path, "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "File could not be found.")
		return
	}
	header := w.Header()
	header.Set("Cross-Origin-Embedder-Policy", "require-corp")
	header.Set("Cross-Origin-Opener-Policy", "same-origin")
	header.Set("Content-Type", f.Mime(name))
	header.Set(sourceHeader, name)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// resolve maps a request path to the file it names and reads it
func (f *FileServer) resolve(urlPath string) (name string, data []byte, err error) {
	switch urlPath {
	case ClientPath:
		return path.Base(ClientPath), f.Client(), nil
	case "/", "":
		name = f.target
	default:
		name, err = f.within(urlPath)
		if err != nil {
			return "", nil, err
		}
	}
	data, err = os.ReadFile(name)
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}

// within joins urlPath onto the root, refusing anything that escapes it
func (f *FileServer) within(urlPath string) (string, error) {
	full := filepath.Join(f.root, filepath.FromSlash(path.Clean("/"+urlPath)))
	rel, err := filepath.Rel(f.root, full)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return full, nil
}

// Listen binds the file server's address
func (f *FileServer) Listen() error {
	ln, err := socket.Listen(f.addr)
	if err != nil {
		return fmt.Errorf("devserve: unable to serve files on %q: %w", f.addr, err)
	}
	f.ln = ln
	f.server = &http.Server{Handler: f.Handler()}
	return nil
}

// Serve blocks until the file server is closed
func (f *FileServer) Serve() error {
	if f.ln == nil {
		return fmt.Errorf("devserve: file server is not listening")
	}
	if err := f.server.Serve(f.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr is the bound address, or the configured one before Listen
func (f *FileServer) Addr() string {
	if f.ln == nil {
		return f.addr
	}
	return f.ln.Addr().String()
}

// URL is where the target can be opened in a browser
func (f *FileServer) URL() string {
	return "http://" + f.Addr()
}

// Close stops accepting connections and gives in-flight requests a moment
// to finish. Calling Close more than once is fine.
func (f *FileServer) Close() (err error) {
	f.once.Do(func() {
		if f.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err = f.server.Shutdown(ctx); err != nil {
				err = f.server.Close()
			}
		}
		if f.ln != nil {
			f.ln.Close()
		}
	})
	return err
}
