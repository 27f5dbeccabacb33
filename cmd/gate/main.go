// gate runs the unit tests of every marked source file in a repository and
// stops at the first failure.
package main

import (
	"os"

	"github.com/hupe1980/unitframe/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteGate())
}
