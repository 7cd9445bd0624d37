package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/idempotency"
	"github.com/chainspec/registry/internal/oracle"
)

const (
	testTarget    = "0x1234567890abcdef1234567890abcdef12345678"
	testCommitter = "0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1"
)

func TestRunMain_Content(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"name":"Token"}`)
	var out bytes.Buffer
	if err := runMain([]string{"content"}, bytes.NewReader(payload), &out); err != nil {
		t.Fatalf("runMain content: %v", err)
	}
	want := idempotency.ContentHashV1(payload).Hex()
	if got := strings.TrimSpace(out.String()); got != want {
		t.Fatalf("content hash = %s, want %s", got, want)
	}
}

func TestRunMain_BlindedMatchesCommitmentChain(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"name":"Token"}`)
	verification := idempotency.ContentHashV1(payload)
	nonce := common.HexToHash("0x4e")

	var out bytes.Buffer
	err := runMain([]string{
		"blinded",
		"--verification-hash", verification.Hex(),
		"--nonce", nonce.Hex(),
	}, nil, &out)
	if err != nil {
		t.Fatalf("runMain blinded: %v", err)
	}
	blinded := strings.TrimSpace(out.String())
	if blinded != idempotency.BlindedHashV1(verification, nonce).Hex() {
		t.Fatalf("blinded hash mismatch: %s", blinded)
	}

	out.Reset()
	err = runMain([]string{
		"commitment",
		"--blinded-hash", blinded,
		"--committer", testCommitter,
		"--target", testTarget,
		"--chain-id", "1",
		"--commit-unix", "1700000000",
	}, nil, &out)
	if err != nil {
		t.Fatalf("runMain commitment: %v", err)
	}
	want := idempotency.CommitmentIDV1(
		common.HexToHash(blinded),
		common.HexToAddress(testCommitter),
		common.HexToAddress(testTarget),
		1, 1700000000,
	).Hex()
	if got := strings.TrimSpace(out.String()); got != want {
		t.Fatalf("commitment id = %s, want %s", got, want)
	}
}

func TestRunMain_SpecAndIncentive(t *testing.T) {
	t.Parallel()

	content := common.HexToHash("0xcc")

	var out bytes.Buffer
	err := runMain([]string{
		"spec",
		"--content-hash", content.Hex(),
		"--target", testTarget,
		"--chain-id", "1",
		"--creator", testCommitter,
		"--commit-unix", "1700000000",
	}, nil, &out)
	if err != nil {
		t.Fatalf("runMain spec: %v", err)
	}
	wantSpec := idempotency.SpecIDV1(content,
		common.HexToAddress(testTarget), 1,
		common.HexToAddress(testCommitter), 1700000000).Hex()
	if got := strings.TrimSpace(out.String()); got != wantSpec {
		t.Fatalf("spec id = %s, want %s", got, wantSpec)
	}

	out.Reset()
	err = runMain([]string{
		"incentive",
		"--creator", testCommitter,
		"--target", testTarget,
		"--chain-id", "1",
		"--created-unix", "1700000000",
		"--seq", "3",
	}, nil, &out)
	if err != nil {
		t.Fatalf("runMain incentive: %v", err)
	}
	wantInc := idempotency.IncentiveIDV1(
		common.HexToAddress(testCommitter),
		common.HexToAddress(testTarget),
		1, 1700000000, 3).Hex()
	if got := strings.TrimSpace(out.String()); got != wantInc {
		t.Fatalf("incentive id = %s, want %s", got, wantInc)
	}
}

func TestRunMain_Question(t *testing.T) {
	t.Parallel()

	content := common.HexToHash("0xcc")
	var out bytes.Buffer
	err := runMain([]string{
		"question",
		"--content-hash", content.Hex(),
		"--target", testTarget,
		"--chain-id", "8453",
	}, nil, &out)
	if err != nil {
		t.Fatalf("runMain question: %v", err)
	}
	want := oracle.RenderQuestion(content, common.HexToAddress(testTarget), 8453)
	if got := strings.TrimSpace(out.String()); got != want {
		t.Fatalf("question = %q, want %q", got, want)
	}
}

func TestRunMain_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"no subcommand", nil},
		{"unknown subcommand", []string{"frobnicate"}},
		{"blinded missing nonce", []string{"blinded", "--verification-hash", common.HexToHash("0x01").Hex()}},
		{"commitment bad address", []string{"commitment", "--blinded-hash", common.HexToHash("0x01").Hex(), "--committer", "nope", "--target", testTarget, "--chain-id", "1", "--commit-unix", "1"}},
		{"spec zero chain", []string{"spec", "--content-hash", common.HexToHash("0x01").Hex(), "--target", testTarget, "--creator", testCommitter, "--commit-unix", "1"}},
		{"content empty stdin", []string{"content"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runMain(tc.args, bytes.NewReader(nil), &out); err == nil {
				t.Fatalf("expected error, got output %q", out.String())
			}
		})
	}
}
