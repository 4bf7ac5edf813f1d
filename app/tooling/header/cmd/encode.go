package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/spf13/cobra"
)

var file string

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a block object returned by eth_getBlockByNumber.",
	Run:   encodeRun,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVarP(&file, "file", "f", "-", "Path to the JSON block object, - for stdin.")
}

func encodeRun(cmd *cobra.Command, args []string) {
	in := cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	if err := encode(cmd.OutOrStdout(), in); err != nil {
		log.Fatal(err)
	}
}

func encode(w io.Writer, r io.Reader) error {
	var raw header.Raw
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("reading block: %w", err)
	}

	h, err := header.Parse(raw)
	if err != nil {
		return err
	}

	rlpHex, err := header.EncodeHex(h)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, rlpHex)
	return err
}
