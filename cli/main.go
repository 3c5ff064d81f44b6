// Command oracle-bridge runs the weather data oracle bridge node and talks to
// it over RPC.
package main

import (
	"fmt"
	"os"

	"github.com/nspcc-dev/oracle-bridge/cli/app"
)

func main() {
	ctl := app.New()
	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintf(ctl.ErrWriter, "oracle-bridge: %v\n", err)
		os.Exit(1)
	}
}
