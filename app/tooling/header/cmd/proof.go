package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Print the proof a relay holds for a block.",
	Run:   proofRun,
}

func init() {
	rootCmd.AddCommand(proofCmd)
	proofCmd.Flags().StringVarP(&relayURL, "url", "u", "http://localhost:8080", "Url of the relay.")
	proofCmd.Flags().Uint64VarP(&number, "number", "n", 0, "Number of the block.")
}

func proofRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/proof/%d", relayURL, number))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var doc json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		log.Fatal(err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("relay responded %d: %s", resp.StatusCode, doc)
	}

	if err := printJSON(cmd.OutOrStdout(), doc); err != nil {
		log.Fatal(err)
	}
}
