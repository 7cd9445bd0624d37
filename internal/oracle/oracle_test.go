package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func testQuestion() Question {
	return Question{
		TemplateID:   7,
		Text:         RenderQuestion(common.HexToHash("0xaa"), common.HexToAddress("0x2222222222222222222222222222222222222222"), 1),
		Arbitrator:   common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Timeout:      7 * 24 * time.Hour,
		OpeningDelay: time.Hour,
		MinBond:      1000,
	}
}

func TestRenderQuestion(t *testing.T) {
	content := common.HexToHash("0xaa")
	target := common.HexToAddress("0x2222222222222222222222222222222222222222")

	text := RenderQuestion(content, target, 8453)
	for _, want := range []string{content.Hex(), target.Hex(), "8453"} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered question missing %q: %s", want, text)
		}
	}
}

func TestMemoryOracle_Lifecycle(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOracle()

	id, err := o.AskQuestion(ctx, testQuestion())
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if id == (common.Hash{}) {
		t.Fatalf("zero question id")
	}

	done, err := o.IsFinalized(ctx, id)
	if err != nil || done {
		t.Fatalf("fresh question finalized=%v err=%v", done, err)
	}
	if _, err := o.ResultFor(ctx, id); !errors.Is(err, ErrNotFinalized) {
		t.Fatalf("expected ErrNotFinalized, got %v", err)
	}

	o.Finalize(id, AcceptedResult)
	done, err = o.IsFinalized(ctx, id)
	if err != nil || !done {
		t.Fatalf("finalized=%v err=%v", done, err)
	}
	res, err := o.ResultFor(ctx, id)
	if err != nil || res != AcceptedResult {
		t.Fatalf("result=%x err=%v", res, err)
	}
}

func TestMemoryOracle_DistinctIDs(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOracle()

	a, err := o.AskQuestion(ctx, testQuestion())
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	b, err := o.AskQuestion(ctx, testQuestion())
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if a == b {
		t.Fatalf("identical questions must still get distinct ids")
	}
}

func TestMemoryOracle_UnknownQuestion(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOracle()

	if _, err := o.IsFinalized(ctx, common.HexToHash("0x01")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := o.ResultFor(ctx, common.HexToHash("0x01")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPackAskQuestion_RoundTrip(t *testing.T) {
	q := testQuestion()
	data, err := PackAskQuestion(q)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(data) < 4 {
		t.Fatalf("calldata too short: %d", len(data))
	}

	if err := initABI(); err != nil {
		t.Fatalf("abi: %v", err)
	}
	method, ok := oracleABI.Methods["askQuestion"]
	if !ok {
		t.Fatalf("askQuestion method missing")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got := args[0].(uint32); got != q.TemplateID {
		t.Fatalf("templateId = %d, want %d", got, q.TemplateID)
	}
	if got := args[1].(string); got != q.Text {
		t.Fatalf("question = %q, want %q", got, q.Text)
	}
	if got := args[2].(common.Address); got != q.Arbitrator {
		t.Fatalf("arbitrator = %x", got)
	}
	if got := args[3].(uint32); got != uint32(q.Timeout.Seconds()) {
		t.Fatalf("timeout = %d", got)
	}
}

func TestContractOracle(t *testing.T) {
	ctx := context.Background()
	contract := common.HexToAddress("0x4444444444444444444444444444444444444444")
	qid := common.HexToHash("0xbeef")

	call := func(_ context.Context, to common.Address, data []byte) ([]byte, error) {
		if to != contract {
			t.Fatalf("call to %x", to)
		}
		method, err := oracleABI.MethodById(data[:4])
		if err != nil {
			t.Fatalf("method: %v", err)
		}
		switch method.Name {
		case "isFinalized":
			return method.Outputs.Pack(true)
		case "resultFor":
			return method.Outputs.Pack([32]byte(AcceptedResult))
		default:
			t.Fatalf("unexpected call %s", method.Name)
			return nil, nil
		}
	}
	send := func(_ context.Context, to common.Address, value uint64, data []byte) ([]byte, error) {
		if value != testQuestion().MinBond {
			t.Fatalf("value = %d", value)
		}
		method, err := oracleABI.MethodById(data[:4])
		if err != nil || method.Name != "askQuestion" {
			t.Fatalf("unexpected send: %v %v", method, err)
		}
		return method.Outputs.Pack([32]byte(qid))
	}

	o, err := NewContractOracle(contract, call, send)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := o.AskQuestion(ctx, testQuestion())
	if err != nil || got != qid {
		t.Fatalf("ask = %x, %v", got, err)
	}
	done, err := o.IsFinalized(ctx, qid)
	if err != nil || !done {
		t.Fatalf("finalized = %v, %v", done, err)
	}
	res, err := o.ResultFor(ctx, qid)
	if err != nil || res != AcceptedResult {
		t.Fatalf("result = %x, %v", res, err)
	}
}
