// Command rxsafety runs the safety engines from the command line and
// manages the knowledge store.
package main

import (
	"os"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
