package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// oracleABIJSON is the call surface of the on-chain oracle contract. Only the
// three operations the registry consumes are bound.
const oracleABIJSON = `[
	{
		"type": "function",
		"name": "askQuestion",
		"stateMutability": "payable",
		"inputs": [
			{"name": "templateId", "type": "uint32"},
			{"name": "question", "type": "string"},
			{"name": "arbitrator", "type": "address"},
			{"name": "timeout", "type": "uint32"},
			{"name": "openingDelay", "type": "uint32"},
			{"name": "minBond", "type": "uint256"}
		],
		"outputs": [{"name": "questionId", "type": "bytes32"}]
	},
	{
		"type": "function",
		"name": "isFinalized",
		"stateMutability": "view",
		"inputs": [{"name": "questionId", "type": "bytes32"}],
		"outputs": [{"name": "", "type": "bool"}]
	},
	{
		"type": "function",
		"name": "resultFor",
		"stateMutability": "view",
		"inputs": [{"name": "questionId", "type": "bytes32"}],
		"outputs": [{"name": "", "type": "bytes32"}]
	}
]`

var (
	abiOnce sync.Once
	abiErr  error

	oracleABI abi.ABI
)

func initABI() error {
	abiOnce.Do(func() {
		var err error
		oracleABI, err = abi.JSON(strings.NewReader(oracleABIJSON))
		if err != nil {
			abiErr = fmt.Errorf("oracle: parse ABI: %w", err)
		}
	})
	return abiErr
}

// PackAskQuestion builds askQuestion calldata.
func PackAskQuestion(q Question) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	timeout := uint32(q.Timeout.Seconds())
	delay := uint32(q.OpeningDelay.Seconds())
	data, err := oracleABI.Pack("askQuestion",
		q.TemplateID, q.Text, q.Arbitrator, timeout, delay, new(big.Int).SetUint64(q.MinBond))
	if err != nil {
		return nil, fmt.Errorf("oracle: pack askQuestion: %w", err)
	}
	return data, nil
}

// PackIsFinalized builds isFinalized calldata.
func PackIsFinalized(questionID common.Hash) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	data, err := oracleABI.Pack("isFinalized", questionID)
	if err != nil {
		return nil, fmt.Errorf("oracle: pack isFinalized: %w", err)
	}
	return data, nil
}

// PackResultFor builds resultFor calldata.
func PackResultFor(questionID common.Hash) ([]byte, error) {
	if err := initABI(); err != nil {
		return nil, err
	}
	data, err := oracleABI.Pack("resultFor", questionID)
	if err != nil {
		return nil, fmt.Errorf("oracle: pack resultFor: %w", err)
	}
	return data, nil
}

// CallFn executes a read-only contract call and returns the raw return data.
type CallFn func(ctx context.Context, to common.Address, data []byte) ([]byte, error)

// SendFn executes a state-changing contract call carrying value and returns
// the raw return data.
type SendFn func(ctx context.Context, to common.Address, value uint64, data []byte) ([]byte, error)

// ContractOracle is an Oracle bound to an on-chain oracle contract through
// caller-supplied transport functions. Keeping the transport as plain
// functions lets the same binding run over any RPC stack.
type ContractOracle struct {
	contract common.Address
	call     CallFn
	send     SendFn
}

func NewContractOracle(contract common.Address, call CallFn, send SendFn) (*ContractOracle, error) {
	if contract == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero contract address", ErrInvalidInput)
	}
	if call == nil || send == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidInput)
	}
	return &ContractOracle{contract: contract, call: call, send: send}, nil
}

func (o *ContractOracle) AskQuestion(ctx context.Context, q Question) (common.Hash, error) {
	data, err := PackAskQuestion(q)
	if err != nil {
		return common.Hash{}, err
	}
	ret, err := o.send(ctx, o.contract, q.MinBond, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("oracle: askQuestion: %w", err)
	}

	if err := initABI(); err != nil {
		return common.Hash{}, err
	}
	out, err := oracleABI.Unpack("askQuestion", ret)
	if err != nil {
		return common.Hash{}, fmt.Errorf("oracle: decode askQuestion return: %w", err)
	}
	id, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("oracle: unexpected askQuestion return type %T", out[0])
	}
	return common.Hash(id), nil
}

func (o *ContractOracle) IsFinalized(ctx context.Context, questionID common.Hash) (bool, error) {
	data, err := PackIsFinalized(questionID)
	if err != nil {
		return false, err
	}
	ret, err := o.call(ctx, o.contract, data)
	if err != nil {
		return false, fmt.Errorf("oracle: isFinalized: %w", err)
	}
	out, err := oracleABI.Unpack("isFinalized", ret)
	if err != nil {
		return false, fmt.Errorf("oracle: decode isFinalized return: %w", err)
	}
	done, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("oracle: unexpected isFinalized return type %T", out[0])
	}
	return done, nil
}

func (o *ContractOracle) ResultFor(ctx context.Context, questionID common.Hash) (common.Hash, error) {
	data, err := PackResultFor(questionID)
	if err != nil {
		return common.Hash{}, err
	}
	ret, err := o.call(ctx, o.contract, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("oracle: resultFor: %w", err)
	}
	out, err := oracleABI.Unpack("resultFor", ret)
	if err != nil {
		return common.Hash{}, fmt.Errorf("oracle: decode resultFor return: %w", err)
	}
	res, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("oracle: unexpected resultFor return type %T", out[0])
	}
	return common.Hash(res), nil
}
