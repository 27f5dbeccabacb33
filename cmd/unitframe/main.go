// unitframe opens a project in the editor and re-runs its unit tests on
// every save.
package main

import (
	"os"

	"github.com/hupe1980/unitframe/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
