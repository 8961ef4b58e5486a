package devserve

import (
	_ "embed"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

// ClientPath is where the reload client is served from
const ClientPath = "/client.js"

//go:embed client.js
var clientSource string

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)
	return m
}()

// ClientScript renders the browser reload client for the given socket URL
func ClientScript(socketURL string) []byte {
	source := strings.ReplaceAll(clientSource, "{{.SocketURL}}", socketURL)
	minified, err := minifier.String("application/javascript", source)
	if err != nil {
		return []byte(source)
	}
	return []byte(minified)
}
