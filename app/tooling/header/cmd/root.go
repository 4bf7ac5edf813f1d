// Package cmd contains the header tooling app.
package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	nodeURL  string
	relayURL string
	number   uint64
)

var rootCmd = &cobra.Command{
	Use:   "header",
	Short: "Encode, decode and fetch Ethereum block headers.",
}

// Execute runs the command selected on the command line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// printJSON writes the value as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
