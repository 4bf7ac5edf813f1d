package ethash_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/ethash"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Epoch(t *testing.T) {
	type table struct {
		name   string
		number uint64
		epoch  uint64
		next   uint64
		dag    bool
	}

	const length = ethash.DefaultEpochLength

	tt := []table{
		{name: "genesis", number: 0, epoch: 0, next: 30000, dag: false},
		{name: "halfway", number: 15000, epoch: 0, next: 30000, dag: false},
		{name: "past-halfway", number: 15001, epoch: 0, next: 30000, dag: true},
		{name: "last", number: 29999, epoch: 0, next: 30000, dag: true},
		{name: "boundary", number: 30000, epoch: 1, next: 60000, dag: false},
		{name: "mainnet", number: 11_000_000, epoch: 366, next: 11_010_000, dag: true},
	}

	t.Log("Given the need to know the epoch of a block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling block %d.", testID, tst.number)
				{
					if got := ethash.Epoch(tst.number, length); got != tst.epoch {
						t.Fatalf("\t%s\tTest %d:\tShould get epoch %d, got %d.", failed, testID, tst.epoch, got)
					}
					t.Logf("\t%s\tTest %d:\tShould get epoch %d.", success, testID, tst.epoch)

					if got := ethash.NextEpochBlock(tst.number, length); got != tst.next {
						t.Fatalf("\t%s\tTest %d:\tShould get next epoch block %d, got %d.", failed, testID, tst.next, got)
					}
					t.Logf("\t%s\tTest %d:\tShould get next epoch block %d.", success, testID, tst.next)

					if got := ethash.ShouldGenerateDAG(tst.number, length); got != tst.dag {
						t.Fatalf("\t%s\tTest %d:\tShould get generate DAG %v.", failed, testID, tst.dag)
					}
					t.Logf("\t%s\tTest %d:\tShould get generate DAG %v.", success, testID, tst.dag)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ExtractProof(t *testing.T) {
	type table struct {
		name   string
		output string
		proof  string
		err    bool
	}

	tt := []table{
		{
			name:   "marker",
			output: "Loading DAG\nepoch 0\nJson output:\n{\"header_rlp\":\"0xf9\",\"elements\":[\"0x01\"]}\n",
			proof:  `{"header_rlp":"0xf9","elements":["0x01"]}`,
		},
		{
			name:   "multiline",
			output: "noise\n----Json output----\n{\n  \"merkle_root\": \"0x00\"\n}\n",
			proof:  "{\n  \"merkle_root\": \"0x00\"\n}",
		},
		{name: "no-marker", output: "{\"a\":1}\n", err: true},
		{name: "empty", output: "", err: true},
		{name: "not-json", output: "Json output\nnot json\n", err: true},
	}

	t.Log("Given the need to read the proof from the relayer output.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s output.", testID, tst.name)
				{
					proof, err := ethash.ExtractProof([]byte(tst.output))
					if tst.err {
						if err == nil {
							t.Fatalf("\t%s\tTest %d:\tShould get an error.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould get an error.", success, testID)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to extract the proof: %v", failed, testID, err)
					}

					if string(proof) != tst.proof {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, proof)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.proof)
						t.Fatalf("\t%s\tTest %d:\tShould get the proof.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the proof.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Prover(t *testing.T) {
	t.Log("Given the need to run the ethashproof tools.")
	{
		var calls []string
		run := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			calls = append(calls, name+" "+strings.Join(args, " "))
			switch filepath.Base(name) {
			case "relayer":
				return []byte("Json output\n{\"ok\":true}\n"), nil, nil
			case "epoch":
				return []byte("generated"), []byte("warning"), errors.New("exit status 1")
			}
			return nil, nil, errors.New("unknown command")
		}

		var events []string
		ev := func(v string, args ...any) {
			events = append(events, v)
		}

		p := ethash.NewProver("/opt/ethashproof", run, ev)

		t.Logf("\tTest 0:\tWhen asking for a proof.")
		{
			proof, err := p.Proof(context.Background(), "0xf901f4")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to get a proof: %v", failed, err)
			}
			if string(proof) != `{"ok":true}` {
				t.Fatalf("\t%s\tTest 0:\tShould get the relayer proof, got %s.", failed, proof)
			}
			t.Logf("\t%s\tTest 0:\tShould get the relayer proof.", success)

			exp := filepath.Join("/opt/ethashproof", "cmd", "relayer", "relayer") + " 0xf901f4"
			if calls[0] != exp {
				t.Fatalf("\t%s\tTest 0:\tShould run %q, ran %q.", failed, exp, calls[0])
			}
			t.Logf("\t%s\tTest 0:\tShould run the relayer with the header.", success)
		}

		t.Logf("\tTest 1:\tWhen the DAG generation fails.")
		{
			if err := p.GenerateDAG(context.Background(), 367); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould get an error.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get an error.", success)

			exp := filepath.Join("/opt/ethashproof", "cmd", "epoch", "epoch") + " 367"
			if calls[1] != exp {
				t.Fatalf("\t%s\tTest 1:\tShould run %q, ran %q.", failed, exp, calls[1])
			}
			t.Logf("\t%s\tTest 1:\tShould run the epoch tool with the epoch.", success)

			if len(events) < 4 {
				t.Fatalf("\t%s\tTest 1:\tShould report the tool output as events, got %d.", failed, len(events))
			}
			t.Logf("\t%s\tTest 1:\tShould report the tool output as events.", success)
		}
	}
}
