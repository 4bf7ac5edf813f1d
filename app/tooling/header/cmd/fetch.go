package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/ethrpc"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a block header from a node and print its RLP encoding.",
	Run:   fetchRun,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&nodeURL, "url", "u", "http://localhost:8545", "Url of the Ethereum node.")
	fetchCmd.Flags().Uint64VarP(&number, "number", "n", 0, "Number of the block.")
}

func fetchRun(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ethrpc.Dial(ctx, nodeURL)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	h, reported, err := client.Header(ctx, number)
	if err != nil {
		log.Fatal(err)
	}

	rlpHex, err := header.EncodeHex(h)
	if err != nil {
		log.Fatal(err)
	}

	sum, err := header.Hash(h)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), rlpHex)
	if sum != reported {
		log.Printf("WARNING: computed hash %s doesn't match the node's %s", sum, reported)
	}
}
