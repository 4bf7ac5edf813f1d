package relay_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint/storage/memory"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/ethrpc"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/relay"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// ethService serves a chain of synthetic headers over the eth namespace.
type ethService struct {
	mu     sync.Mutex
	head   uint64
	badTip bool
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return hexutil.Uint64(s.head)
}

func (s *ethService) GetBlockByNumber(number hexutil.Uint64, fullTx bool) (*header.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uint64(number) > s.head {
		return nil, nil
	}

	h := testHeader(uint64(number))
	hash, err := header.Hash(h)
	if err != nil {
		return nil, err
	}

	raw := header.ToRaw(h)
	raw.Hash = hash.Hex()
	if s.badTip && uint64(number) == s.head {
		raw.Hash = common.Hash{0x01}.Hex()
	}

	return &raw, nil
}

func testHeader(number uint64) header.BlockHeader {
	return header.BlockHeader{
		ParentHash: common.Hash{byte(number)},
		Author:     common.HexToAddress("0x05a56e2d52c817161883f50c441c3228cfe54d9f"),
		Difficulty: big.NewInt(17171480576),
		Number:     new(big.Int).SetUint64(number),
		GasLimit:   big.NewInt(5000),
		GasUsed:    big.NewInt(0),
		Timestamp:  big.NewInt(1438269988 + int64(number)),
		ExtraData:  []byte("relay"),
	}
}

// prover records the headers it is asked to prove.
type prover struct {
	mu     sync.Mutex
	proofs []string
	dags   []uint64
}

func (p *prover) Proof(ctx context.Context, rlpHex string) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.proofs = append(p.proofs, rlpHex)
	return json.RawMessage(fmt.Sprintf(`{"header_rlp":%q}`, rlpHex)), nil
}

func (p *prover) GenerateDAG(ctx context.Context, epoch uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dags = append(p.dags, epoch)
	return nil
}

func (p *prover) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.proofs)
}

type harness struct {
	svc     *ethService
	prover  *prover
	storage *memory.Memory
	store   *checkpoint.Store
	events  []string
	relay   *relay.Relay
}

func newHarness(t *testing.T, head uint64, startBlock *uint64, persistEvery uint64) *harness {
	hns := harness{
		svc:     &ethService{head: head},
		prover:  &prover{},
		storage: memory.New(),
	}

	node := ethrpcFrom(t, hns.svc)

	store, err := checkpoint.New(hns.storage)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open the store: %v", failed, err)
	}
	hns.store = store

	cfg := relay.Config{
		Node:         node,
		Prover:       hns.prover,
		Store:        store,
		PersistEvery: persistEvery,
		StartBlock:   startBlock,
		EvHandler: func(v string, args ...any) {
			hns.events = append(hns.events, fmt.Sprintf(v, args...))
		},
	}

	r, err := relay.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the relay: %v", failed, err)
	}
	hns.relay = r

	return &hns
}

func Test_ProcessBlocks(t *testing.T) {
	t.Log("Given the need to prove blocks up to the chain head.")
	{
		ctx := context.Background()
		hns := newHarness(t, 6, block(5), 5)

		t.Logf("\tTest 0:\tWhen processing blocks 5 and 6.")
		{
			for _, num := range []uint64{5, 6} {
				worked, err := hns.relay.ProcessNextBlock(ctx)
				if err != nil || !worked {
					t.Fatalf("\t%s\tTest 0:\tShould be able to process block %d: %v", failed, num, err)
				}

				proof, err := hns.relay.Proof(num)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould have a proof for block %d: %v", failed, num, err)
				}

				var doc struct {
					HeaderRLP string `json:"header_rlp"`
				}
				if err := json.Unmarshal(proof, &doc); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould get a json proof: %v", failed, err)
				}

				h, err := header.DecodeHex(doc.HeaderRLP)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould hand the prover a valid header: %v", failed, err)
				}

				if !header.Equal(h, testHeader(num)) {
					t.Fatalf("\t%s\tTest 0:\tShould hand the prover block %d, got %s.", failed, num, h.Number)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould hand the prover the encoded headers and store the proofs.", success)

			if hns.storage.Writes() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould persist once at block 5, got %d writes.", failed, hns.storage.Writes())
			}
			t.Logf("\t%s\tTest 0:\tShould persist once at block 5.", success)

			for _, ev := range hns.events {
				if strings.Contains(ev, "mismatch") {
					t.Fatalf("\t%s\tTest 0:\tShould not report a hash mismatch: %s", failed, ev)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould not report a hash mismatch.", success)
		}

		t.Logf("\tTest 1:\tWhen the next block is past the chain head.")
		{
			worked, err := hns.relay.ProcessNextBlock(ctx)
			if err != nil || worked {
				t.Fatalf("\t%s\tTest 1:\tShould do nothing: %v", failed, err)
			}

			if hns.relay.NextBlock() != 7 || hns.prover.calls() != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould stay on block 7, got %d.", failed, hns.relay.NextBlock())
			}
			t.Logf("\t%s\tTest 1:\tShould do nothing.", success)
		}

		t.Logf("\tTest 2:\tWhen the node reports a different hash.")
		{
			hns.svc.mu.Lock()
			hns.svc.head = 7
			hns.svc.badTip = true
			hns.svc.mu.Unlock()

			worked, err := hns.relay.ProcessNextBlock(ctx)
			if err != nil || !worked {
				t.Fatalf("\t%s\tTest 2:\tShould still process the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould still process the block.", success)

			var found bool
			for _, ev := range hns.events {
				if strings.Contains(ev, "block[7]: hash mismatch") {
					found = true
				}
			}
			if !found {
				t.Fatalf("\t%s\tTest 2:\tShould report the hash mismatch.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould report the hash mismatch.", success)
		}
	}
}

func Test_SkipProvenBlock(t *testing.T) {
	t.Log("Given the need to not prove a block twice.")
	{
		t.Logf("\tTest 0:\tWhen a proof is already stored for the next block.")
		{
			hns := newHarness(t, 10, block(3), 0)
			hns.store.AddProof(3, json.RawMessage(`{"old":true}`))

			worked, err := hns.relay.ProcessNextBlock(context.Background())
			if err != nil || !worked {
				t.Fatalf("\t%s\tTest 0:\tShould move past the block: %v", failed, err)
			}

			if hns.prover.calls() != 0 || hns.relay.NextBlock() != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould skip the prover, calls %d next %d.", failed, hns.prover.calls(), hns.relay.NextBlock())
			}
			t.Logf("\t%s\tTest 0:\tShould skip the prover.", success)

			proof, _ := hns.relay.Proof(3)
			if string(proof) != `{"old":true}` {
				t.Fatalf("\t%s\tTest 0:\tShould keep the stored proof, got %s.", failed, proof)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the stored proof.", success)
		}
	}
}

func Test_StartBlock(t *testing.T) {
	t.Log("Given the need to pick where the relay starts.")
	{
		ctx := context.Background()

		t.Logf("\tTest 0:\tWhen nothing is configured or recorded.")
		{
			hns := newHarness(t, 42, nil, 0)
			if hns.relay.NextBlock() != 42 {
				t.Fatalf("\t%s\tTest 0:\tShould start at the chain head, got %d.", failed, hns.relay.NextBlock())
			}
			t.Logf("\t%s\tTest 0:\tShould start at the chain head.", success)
		}

		t.Logf("\tTest 1:\tWhen restarting a relay that is behind the chain head.")
		{
			hns := newHarness(t, 1000, block(100), 0)

			for num := uint64(100); num <= 104; num++ {
				if worked, err := hns.relay.ProcessNextBlock(ctx); err != nil || !worked {
					t.Fatalf("\t%s\tTest 1:\tShould be able to process block %d: %v", failed, num, err)
				}
			}

			if _, err := hns.relay.UpdateHead(ctx); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to update the head: %v", failed, err)
			}

			if err := hns.relay.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to shutdown the relay: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould prove blocks 100 to 104 and shutdown.", success)

			store, err := checkpoint.New(hns.storage)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to reopen the store: %v", failed, err)
			}

			if head, _ := store.Head(); head != 1000 {
				t.Fatalf("\t%s\tTest 1:\tShould keep the chain head in the checkpoint, got %d.", failed, head)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the chain head in the checkpoint.", success)

			r, err := relay.New(ctx, relay.Config{
				Node:   ethrpcFrom(t, hns.svc),
				Prover: hns.prover,
				Store:  store,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct the relay: %v", failed, err)
			}

			if r.NextBlock() != 105 {
				t.Fatalf("\t%s\tTest 1:\tShould resume after the last proven block, got %d.", failed, r.NextBlock())
			}
			t.Logf("\t%s\tTest 1:\tShould resume after the last proven block.", success)
		}

		t.Logf("\tTest 2:\tWhen the relay is pointed at genesis.")
		{
			hns := newHarness(t, 2, block(0), 0)
			if hns.relay.NextBlock() != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould start at block 0, got %d.", failed, hns.relay.NextBlock())
			}
			t.Logf("\t%s\tTest 2:\tShould start at block 0.", success)

			if worked, err := hns.relay.ProcessNextBlock(ctx); err != nil || !worked {
				t.Fatalf("\t%s\tTest 2:\tShould be able to process block 0: %v", failed, err)
			}

			if !hns.store.HasProof(0) || hns.relay.NextBlock() != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould prove block 0, next %d.", failed, hns.relay.NextBlock())
			}
			t.Logf("\t%s\tTest 2:\tShould prove block 0.", success)
		}

		t.Logf("\tTest 3:\tWhen a start block is configured over a checkpoint.")
		{
			hns := newHarness(t, 42, nil, 0)
			hns.store.AddProof(30, json.RawMessage(`{}`))

			r, err := relay.New(ctx, relay.Config{
				Node:       ethrpcFrom(t, hns.svc),
				Prover:     hns.prover,
				Store:      hns.store,
				StartBlock: block(10),
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to construct the relay: %v", failed, err)
			}

			if r.NextBlock() != 10 {
				t.Fatalf("\t%s\tTest 3:\tShould start at the configured block, got %d.", failed, r.NextBlock())
			}
			t.Logf("\t%s\tTest 3:\tShould start at the configured block.", success)
		}
	}
}

func Test_UpdateHead(t *testing.T) {
	t.Log("Given the need to follow the chain head.")
	{
		t.Logf("\tTest 0:\tWhen the head is past the halfway point of the epoch.")
		{
			hns := newHarness(t, 20000, block(1), 0)

			head, err := hns.relay.UpdateHead(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to update the head: %v", failed, err)
			}

			if head.Number != 20000 || head.Epoch != 0 || head.NextEpochBlock != 30000 || !head.GenerateDAG {
				t.Fatalf("\t%s\tTest 0:\tShould get the head details, got %+v.", failed, head)
			}
			t.Logf("\t%s\tTest 0:\tShould get the head details.", success)

			status := hns.relay.Status()
			if status.Head != 20000 || status.Epoch != 0 || status.NextBlock != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould record the head, got %+v.", failed, status)
			}
			t.Logf("\t%s\tTest 0:\tShould record the head.", success)

			if err := hns.relay.GenerateDAG(context.Background(), head.Epoch+1); err != nil || len(hns.prover.dags) != 1 || hns.prover.dags[0] != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould generate the DAG for epoch 1: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould generate the DAG for epoch 1.", success)
		}
	}
}

func block(n uint64) *uint64 {
	return &n
}

func ethrpcFrom(t *testing.T, svc *ethService) *ethrpc.Client {
	server := rpc.NewServer()
	if err := server.RegisterName("eth", svc); err != nil {
		t.Fatalf("\t%s\tShould be able to register the service: %v", failed, err)
	}
	t.Cleanup(server.Stop)

	client := ethrpc.NewClient(rpc.DialInProc(server))
	t.Cleanup(client.Close)

	return client
}
