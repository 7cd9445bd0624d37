// spec-id derives registry identifiers offline: content hashes, blinded
// commit hashes, commitment/spec/incentive ids, and rendered oracle question
// text. Useful for preparing commits and verifying on-ledger ids without a
// running registry.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/idempotency"
	"github.com/chainspec/registry/internal/oracle"
)

func main() {
	if err := runMain(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runMain(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("subcommand is required: content|blinded|commitment|spec|incentive|question")
	}
	subcommand := strings.TrimSpace(args[0])
	switch subcommand {
	case "content":
		return runContent(args[1:], stdin, stdout)
	case "blinded":
		return runBlinded(args[1:], stdout)
	case "commitment":
		return runCommitment(args[1:], stdout)
	case "spec":
		return runSpec(args[1:], stdout)
	case "incentive":
		return runIncentive(args[1:], stdout)
	case "question":
		return runQuestion(args[1:], stdout)
	default:
		return fmt.Errorf("unsupported subcommand %q (want content|blinded|commitment|spec|incentive|question)", subcommand)
	}
}

func runContent(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("spec-id content", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	file := fs.String("file", "", "payload file; empty reads stdin")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		payload []byte
		err     error
	)
	if strings.TrimSpace(*file) != "" {
		payload, err = os.ReadFile(strings.TrimSpace(*file))
	} else {
		payload, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	if len(payload) == 0 {
		return errors.New("payload is empty")
	}

	_, err = fmt.Fprintf(stdout, "%s\n", idempotency.ContentHashV1(payload).Hex())
	return err
}

func runBlinded(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("spec-id blinded", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	verificationHex := fs.String("verification-hash", "", "content hash bytes32 hex")
	nonceHex := fs.String("nonce", "", "blinding nonce bytes32 hex")

	if err := fs.Parse(args); err != nil {
		return err
	}
	verification, err := parseHash32(*verificationHex)
	if err != nil {
		return fmt.Errorf("--verification-hash: %w", err)
	}
	nonce, err := parseHash32(*nonceHex)
	if err != nil {
		return fmt.Errorf("--nonce: %w", err)
	}

	_, err = fmt.Fprintf(stdout, "%s\n", idempotency.BlindedHashV1(verification, nonce).Hex())
	return err
}

func runCommitment(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("spec-id commitment", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	blindedHex := fs.String("blinded-hash", "", "blinded hash bytes32 hex")
	committerHex := fs.String("committer", "", "committer address")
	targetHex := fs.String("target", "", "target contract address")
	chainID := fs.Uint64("chain-id", 0, "target chain id")
	commitUnix := fs.Int64("commit-unix", 0, "commit timestamp (unix seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	blinded, err := parseHash32(*blindedHex)
	if err != nil {
		return fmt.Errorf("--blinded-hash: %w", err)
	}
	committer, err := parseAddr(*committerHex)
	if err != nil {
		return fmt.Errorf("--committer: %w", err)
	}
	target, err := parseAddr(*targetHex)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}
	if *chainID == 0 {
		return errors.New("--chain-id is required")
	}
	if *commitUnix <= 0 {
		return errors.New("--commit-unix is required")
	}

	id := idempotency.CommitmentIDV1(blinded, committer, target, *chainID, *commitUnix)
	_, err = fmt.Fprintf(stdout, "%s\n", id.Hex())
	return err
}

func runSpec(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("spec-id spec", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	contentHex := fs.String("content-hash", "", "content hash bytes32 hex")
	targetHex := fs.String("target", "", "target contract address")
	chainID := fs.Uint64("chain-id", 0, "target chain id")
	creatorHex := fs.String("creator", "", "creator address")
	commitUnix := fs.Int64("commit-unix", 0, "commit timestamp (unix seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	content, err := parseHash32(*contentHex)
	if err != nil {
		return fmt.Errorf("--content-hash: %w", err)
	}
	target, err := parseAddr(*targetHex)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}
	creator, err := parseAddr(*creatorHex)
	if err != nil {
		return fmt.Errorf("--creator: %w", err)
	}
	if *chainID == 0 {
		return errors.New("--chain-id is required")
	}
	if *commitUnix <= 0 {
		return errors.New("--commit-unix is required")
	}

	id := idempotency.SpecIDV1(content, target, *chainID, creator, *commitUnix)
	_, err = fmt.Fprintf(stdout, "%s\n", id.Hex())
	return err
}

func runIncentive(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("spec-id incentive", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	creatorHex := fs.String("creator", "", "creator address")
	targetHex := fs.String("target", "", "target contract address")
	chainID := fs.Uint64("chain-id", 0, "target chain id")
	createdUnix := fs.Int64("created-unix", 0, "creation timestamp (unix seconds)")
	seq := fs.Uint64("seq", 0, "creator's incentive sequence number")

	if err := fs.Parse(args); err != nil {
		return err
	}
	creator, err := parseAddr(*creatorHex)
	if err != nil {
		return fmt.Errorf("--creator: %w", err)
	}
	target, err := parseAddr(*targetHex)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}
	if *chainID == 0 {
		return errors.New("--chain-id is required")
	}
	if *createdUnix <= 0 {
		return errors.New("--created-unix is required")
	}

	id := idempotency.IncentiveIDV1(creator, target, *chainID, *createdUnix, *seq)
	_, err = fmt.Fprintf(stdout, "%s\n", id.Hex())
	return err
}

func runQuestion(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("spec-id question", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	contentHex := fs.String("content-hash", "", "content hash bytes32 hex")
	targetHex := fs.String("target", "", "target contract address")
	chainID := fs.Uint64("chain-id", 0, "target chain id")

	if err := fs.Parse(args); err != nil {
		return err
	}
	content, err := parseHash32(*contentHex)
	if err != nil {
		return fmt.Errorf("--content-hash: %w", err)
	}
	target, err := parseAddr(*targetHex)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}
	if *chainID == 0 {
		return errors.New("--chain-id is required")
	}

	_, err = fmt.Fprintf(stdout, "%s\n", oracle.RenderQuestion(content, target, *chainID))
	return err
}

func parseHash32(raw string) (common.Hash, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "0x")
	raw = strings.TrimPrefix(raw, "0X")
	if raw == "" {
		return common.Hash{}, errors.New("value is required")
	}
	if len(raw) != 64 {
		return common.Hash{}, errors.New("must be 32 bytes")
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

func parseAddr(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.New("must be a valid hex address")
	}
	return common.HexToAddress(raw), nil
}
