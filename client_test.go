package devserve_test

import (
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/matthewmueller/devserve"
)

func TestClientScriptTemplate(t *testing.T) {
	is := is.New(t)
	script := string(devserve.ClientScript("ws://127.0.0.1:4321"))
	is.NoErr(contains(script, "ws://127.0.0.1:4321"))
	is.NoErr(contains(script, devserve.ReloadSignal))
	is.NoErr(contains(script, "beforeunload"))
	is.NoErr(notContains(script, "{{.SocketURL}}"))
}

func TestMimeType(t *testing.T) {
	is := is.New(t)
	is.True(strings.HasPrefix(devserve.MimeType("index.html"), "text/html"))
	is.True(strings.HasPrefix(devserve.MimeType("/a/b/INDEX.HTML"), "text/html"))
	is.True(strings.HasPrefix(devserve.MimeType("site.css"), "text/css"))
	is.Equal(devserve.MimeType("Makefile"), devserve.DefaultMimeType)
	is.Equal(devserve.MimeType("archive.devserve-unknown"), devserve.DefaultMimeType)
}
