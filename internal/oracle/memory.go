package oracle

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// MemoryOracle is a deterministic in-process Oracle for tests and simulation.
// Questions are open until a test finalizes them explicitly.
type MemoryOracle struct {
	mu sync.Mutex

	questions map[common.Hash]Question
	finalized map[common.Hash]common.Hash
	seq       uint64

	// AskErr, when set, makes the next AskQuestion fail.
	askErr error
}

func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		questions: make(map[common.Hash]Question),
		finalized: make(map[common.Hash]common.Hash),
	}
}

func (o *MemoryOracle) AskQuestion(_ context.Context, q Question) (common.Hash, error) {
	if err := q.Validate(); err != nil {
		return common.Hash{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.askErr != nil {
		err := o.askErr
		o.askErr = nil
		return common.Hash{}, err
	}

	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte("question"))
	_, _ = h.Write([]byte(q.Text))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], o.seq)
	_, _ = h.Write(buf[:])
	o.seq++

	id := common.BytesToHash(h.Sum(nil))
	o.questions[id] = q
	return id, nil
}

func (o *MemoryOracle) IsFinalized(_ context.Context, questionID common.Hash) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.questions[questionID]; !ok {
		return false, ErrNotFound
	}
	_, done := o.finalized[questionID]
	return done, nil
}

func (o *MemoryOracle) ResultFor(_ context.Context, questionID common.Hash) (common.Hash, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.questions[questionID]; !ok {
		return common.Hash{}, ErrNotFound
	}
	res, done := o.finalized[questionID]
	if !done {
		return common.Hash{}, ErrNotFinalized
	}
	return res, nil
}

// Finalize records the final answer for a question.
func (o *MemoryOracle) Finalize(questionID common.Hash, result common.Hash) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finalized[questionID] = result
}

// QuestionByID returns the stored question, for assertions.
func (o *MemoryOracle) QuestionByID(id common.Hash) (Question, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	q, ok := o.questions[id]
	return q, ok
}

// FailNextAsk makes the next AskQuestion return err.
func (o *MemoryOracle) FailNextAsk(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.askErr = err
}
