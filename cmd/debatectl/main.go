// debatectl inspects and maintains the debate session store.
package main

import (
	"fmt"
	"os"

	"github.com/ashureev/debate-labs/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
