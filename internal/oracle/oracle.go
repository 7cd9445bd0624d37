// Package oracle defines the narrow contract the registry has with its
// external binary-outcome oracle: ask a question, query finalization, read a
// finalized result. The settlement engine treats the oracle's answers as
// ground truth; everything behind this interface is out of the registry's
// control.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidInput = errors.New("oracle: invalid input")
	ErrNotFound     = errors.New("oracle: question not found")
	ErrNotFinalized = errors.New("oracle: not finalized")
)

// AcceptedResult is the sentinel finalized value denoting acceptance. Any
// other finalized value denotes rejection.
var AcceptedResult = common.Hash{31: 0x01}

// Question parameterizes a binary oracle question.
type Question struct {
	TemplateID uint32
	Text       string

	Arbitrator   common.Address
	Timeout      time.Duration
	OpeningDelay time.Duration

	// MinBond is the stake forwarded as the question's answer bond.
	MinBond uint64
}

func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidInput)
	}
	if q.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrInvalidInput)
	}
	if q.OpeningDelay < 0 {
		return fmt.Errorf("%w: opening delay must be >= 0", ErrInvalidInput)
	}
	return nil
}

// Oracle is the external decision service.
type Oracle interface {
	// AskQuestion opens a new question and returns its handle.
	AskQuestion(ctx context.Context, q Question) (common.Hash, error)

	// IsFinalized reports whether the question has a final answer.
	IsFinalized(ctx context.Context, questionID common.Hash) (bool, error)

	// ResultFor returns the finalized answer. Implementations return
	// ErrNotFinalized when the question is still open.
	ResultFor(ctx context.Context, questionID common.Hash) (common.Hash, error)
}

// questionTemplate is the fixed text template registered once at system
// initialization. Parameters are rendered as human-readable strings so
// off-chain answerers can evaluate the question without tooling.
const questionTemplate = "Does the metadata blob with content hash %s correctly and completely describe the contract at %s on chain %d?"

// RenderQuestion substitutes the (contentHash, target, chain) triple into the
// registered template.
func RenderQuestion(contentHash common.Hash, target common.Address, chainID uint64) string {
	return fmt.Sprintf(questionTemplate, contentHash.Hex(), target.Hex(), chainID)
}
