package cmd

import (
	"io"
	"log"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Print the fields of an RLP encoded header.",
	Args:  cobra.ExactArgs(1),
	Run:   decodeRun,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func decodeRun(cmd *cobra.Command, args []string) {
	if err := decode(cmd.OutOrStdout(), args[0]); err != nil {
		log.Fatal(err)
	}
}

func decode(w io.Writer, rlpHex string) error {
	h, err := header.DecodeHex(rlpHex)
	if err != nil {
		return err
	}

	hash, err := header.Hash(h)
	if err != nil {
		return err
	}

	raw := header.ToRaw(h)
	raw.Hash = hash.Hex()

	return printJSON(w, raw)
}
