// Command festivals manages a festival directory and serves its
// breadcrumbs.
package main

import (
	"os"

	"github.com/mesh-intelligence/festivals/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
