// go-randomness is a node that maintains the on-chain randomness beacon.
package main

import (
	"fmt"
	"os"

	"github.com/spacemeshos/go-randomness/cmd"
	"github.com/spacemeshos/go-randomness/node"
)

var (
	version string
	commit  string
	branch  string
)

func main() { // run the app
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := node.GetCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
