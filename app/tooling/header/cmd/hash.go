package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <hex>",
	Short: "Print the block hash of an RLP encoded header.",
	Args:  cobra.ExactArgs(1),
	Run:   hashRun,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func hashRun(cmd *cobra.Command, args []string) {
	if err := hash(cmd.OutOrStdout(), args[0]); err != nil {
		log.Fatal(err)
	}
}

func hash(w io.Writer, rlpHex string) error {
	h, err := header.DecodeHex(rlpHex)
	if err != nil {
		return err
	}

	sum, err := header.Hash(h)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, sum.Hex())
	return err
}
