package main

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser launches the default browser at the given URL. The auth
// manager falls back to printing the URL when this fails, so errors here
// are never fatal.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	default:
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}
}
