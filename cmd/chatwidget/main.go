// Command chatwidget serves the chat widget in a browser together with its prediction endpoint, or
// runs the widget in the terminal against a running endpoint.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
