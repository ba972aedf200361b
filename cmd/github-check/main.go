package main

import (
	"os"

	"github.com/crimson-sun/standup/internal/cli"
)

func main() {
	if err := cli.Execute(cli.NewGitHubCheckCmd()); err != nil {
		os.Exit(1)
	}
}
