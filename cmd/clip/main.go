// Command clip is the clipboard sharing client: it starts or joins a
// session and pushes or pulls clipboard text through the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
