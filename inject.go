package devserve

import (
	"bytes"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/matthewmueller/httpbuf"
)

// Inject rewrites .html responses to load the reload client just before the
// closing body tag. Other responses pass through untouched. Handlers that
// serve a file under a different URL report its path in sourceHeader.
func Inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Wrap the response writer to capture the response body
		rw := httpbuf.Wrap(w)
		defer rw.Flush()
		next.ServeHTTP(rw, r)
		name := rw.Header().Get(sourceHeader)
		rw.Header().Del(sourceHeader)
		if name == "" {
			name = r.URL.Path
		}
		if !strings.HasSuffix(name, ".html") {
			return
		}
		body, rewrote := rewrite(rw.Body, scriptSrc(r.URL.Path))
		if !rewrote {
			return
		}
		rw.Body = body
		rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
		// Don't cache re-written responses
		rw.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		rw.Header().Set("Last-Modified", "0")
	})
}

// sourceHeader passes the path of the served file from the handler to Inject.
// Inject removes it before the response is written.
const sourceHeader = "X-Devserve-Source"

// scriptSrc points at ClientPath relative to the directory of the page
func scriptSrc(urlPath string) string {
	dir := path.Dir(path.Clean("/" + urlPath))
	if strings.HasSuffix(urlPath, "/") {
		dir = path.Clean("/" + urlPath)
	}
	name := path.Base(ClientPath)
	if dir == "/" {
		return name
	}
	return strings.Repeat("../", strings.Count(dir, "/")) + name
}

func rewrite(data []byte, src string) ([]byte, bool) {
	index := bytes.Index(data, []byte("</body>"))
	if index < 0 {
		return data, false
	}
	script := `<script src="` + src + `"></script>`
	out := make([]byte, 0, len(data)+len(script))
	out = append(out, data[:index]...)
	out = append(out, script...)
	out = append(out, data[index:]...)
	return out, true
}
