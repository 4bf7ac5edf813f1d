package ethash

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoProof is returned when the relayer produced no JSON output.
var ErrNoProof = errors.New("relayer produced no proof")

// jsonMarker is the line the relayer prints right before the JSON proof.
const jsonMarker = "Json output"

// Runner executes a command and returns what it wrote to stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

// EventHandler defines a function that is called when events occur while
// running the external tools.
type EventHandler func(v string, args ...any)

// =============================================================================

// Prover runs the ethashproof relayer and epoch binaries.
type Prover struct {
	dir       string
	run       Runner
	evHandler EventHandler
}

// NewProver constructs a prover for the ethashproof checkout found in dir.
// A nil runner executes the real binaries.
func NewProver(dir string, run Runner, evHandler EventHandler) *Prover {
	if run == nil {
		run = execRunner
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Prover{
		dir:       dir,
		run:       run,
		evHandler: ev,
	}
}

// Proof runs the relayer against the hex encoded RLP header and returns the
// JSON proof it printed.
func (p *Prover) Proof(ctx context.Context, rlpHex string) (json.RawMessage, error) {
	cmd := filepath.Join(p.dir, "cmd", "relayer", "relayer")

	stdout, stderr, err := p.run(ctx, cmd, rlpHex)
	if err != nil {
		p.evHandler("ethash: proof: relayer: ERROR: %s: stderr[%s]", err, strings.TrimSpace(string(stderr)))
	}

	proof, perr := ExtractProof(stdout)
	if perr != nil {
		if err != nil {
			return nil, fmt.Errorf("running relayer: %w", err)
		}
		return nil, perr
	}

	return proof, nil
}

// GenerateDAG runs the epoch binary to build the DAG for the specified epoch.
func (p *Prover) GenerateDAG(ctx context.Context, epoch uint64) error {
	p.evHandler("ethash: generateDAG: started: epoch[%d]", epoch)
	defer p.evHandler("ethash: generateDAG: completed: epoch[%d]", epoch)

	cmd := filepath.Join(p.dir, "cmd", "epoch", "epoch")

	stdout, stderr, err := p.run(ctx, cmd, strconv.FormatUint(epoch, 10))
	p.evHandler("ethash: generateDAG: stdout[%s]", strings.TrimSpace(string(stdout)))
	p.evHandler("ethash: generateDAG: stderr[%s]", strings.TrimSpace(string(stderr)))

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("epoch %d: exit code %d: %w", epoch, exitErr.ExitCode(), err)
		}
		return fmt.Errorf("epoch %d: %w", epoch, err)
	}

	return nil
}

// =============================================================================

// ExtractProof drops every line of relayer output up to and including the
// line holding the JSON marker and parses the rest as JSON. Output without
// the marker holds no proof.
func ExtractProof(output []byte) (json.RawMessage, error) {
	var (
		buf   bytes.Buffer
		found bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !found {
			found = bytes.Contains(line, []byte(jsonMarker))
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading relayer output: %w", err)
	}

	data := bytes.TrimSpace(buf.Bytes())
	if len(data) == 0 {
		return nil, ErrNoProof
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("relayer output is not valid json: %.64s", data)
	}

	return json.RawMessage(data), nil
}

// execRunner runs the command as a child process.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
