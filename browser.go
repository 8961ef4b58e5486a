package devserve

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener opens a URL for the developer, usually in their browser
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to an Opener
type OpenerFunc func(url string) error

func (fn OpenerFunc) Open(url string) error {
	return fn(url)
}

// NoBrowser never opens anything
var NoBrowser = OpenerFunc(func(string) error { return nil })

// SystemBrowser opens URLs in the operating system's default browser
var SystemBrowser Opener = systemBrowser{}

type systemBrowser struct{}

func (systemBrowser) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("devserve: unable to open %s: %w", url, err)
	}
	go cmd.Wait()
	return nil
}
