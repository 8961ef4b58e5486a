//go:build !unix

package main

import "github.com/matthewmueller/devserve"

// There is no spare signal for manual reloads here, so only file changes
// reload the browser.
func reloadOnHangup(*devserve.Session) {}
