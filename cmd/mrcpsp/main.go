package main

import (
	"fmt"
	"os"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/cli"
)

// version 在构建时通过 -ldflags 设置
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
