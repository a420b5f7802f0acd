// Command phototrack manages PhotoTrack users, sites and photos from a
// terminal, talking to the same REST API as the admin server.
package main

import (
	"fmt"
	"os"
)

var (
	version   string
	buildDate string
)

func main() {
	if err := newRootCmd(newStdio()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
