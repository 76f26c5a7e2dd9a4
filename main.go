package main

import (
	"github.com/nilotpaul/meetsync/cmd"
)

// version is set at build time with -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
