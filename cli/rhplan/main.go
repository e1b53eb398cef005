// Package main is the rhplan command itself.
package main

import (
	"os"

	"go.viam.com/rhplan/cli"
	"go.viam.com/rhplan/logging"
)

func main() {
	if err := cli.NewApp(os.Stdout).Run(os.Args); err != nil {
		logging.Global().Fatal(err)
	}
}
