// Command netstackd is the entry point for the demo network-stack agent,
// exposing the server and client demo applications as cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/teeworlds-go/netstack/cmd/netstackd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
