package main

import (
	"os"

	"github.com/crimson-sun/standup/internal/cli"
)

func main() {
	if err := cli.Execute(cli.NewJiraCheckCmd()); err != nil {
		os.Exit(1)
	}
}
