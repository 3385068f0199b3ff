package main

import (
	"os"

	agentbasecmder "github.com/papercomputeco/agentbase/cmd/agentbase"
)

func main() {
	cmd := agentbasecmder.NewAgentbaseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
