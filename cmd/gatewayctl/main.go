package main

import (
	"os"

	"github.com/jrsteele09/go-tenant-gateway/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
