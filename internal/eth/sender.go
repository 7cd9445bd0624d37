// Package eth sends the registry's oracle transactions on an EVM chain: one
// signing account, one transaction in flight at a time, EIP-1559 pricing with
// a tip floor, and fee-bumped replacement when a send sits unmined too long.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrInvalidSenderConfig = errors.New("eth: invalid sender config")

// Backend is the subset of an EVM RPC client the sender needs. ethclient
// satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type SenderConfig struct {
	ChainID            *big.Int
	GasLimitMultiplier float64
	MinTipCap          *big.Int

	ReceiptPollInterval time.Duration

	// ReplaceAfter, MaxReplacements, and ReplacementBumpPercent control
	// fee-bumped replacement of a transaction that sits unmined. Zero
	// MaxReplacements disables replacement.
	ReplaceAfter           time.Duration
	MaxReplacements        int
	ReplacementBumpPercent int

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Sender submits transactions for one signing account and waits for them to
// mine. Sends are serialized: the oracle asks one question at a time, and with
// every transaction mined before the next is priced, the chain's pending
// nonce is authoritative and no local nonce counter is needed.
type Sender struct {
	backend Backend
	signer  Signer
	cfg     SenderConfig

	mu sync.Mutex
}

type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64 // optional; 0 => estimate
}

type SendResult struct {
	From         common.Address
	Nonce        uint64
	TxHash       common.Hash
	Receipt      *types.Receipt
	Replacements int
}

func NewSender(backend Backend, signer Signer, cfg SenderConfig) (*Sender, error) {
	if backend == nil || signer == nil {
		return nil, ErrInvalidSenderConfig
	}
	if (signer.Address() == common.Address{}) {
		return nil, fmt.Errorf("%w: signer has zero address", ErrInvalidSenderConfig)
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, ErrInvalidSenderConfig
	}
	if cfg.GasLimitMultiplier <= 0 {
		return nil, ErrInvalidSenderConfig
	}
	if cfg.MinTipCap == nil || cfg.MinTipCap.Sign() < 0 {
		return nil, ErrInvalidSenderConfig
	}
	if cfg.ReceiptPollInterval <= 0 {
		return nil, ErrInvalidSenderConfig
	}
	if cfg.MaxReplacements < 0 {
		return nil, ErrInvalidSenderConfig
	}
	if cfg.MaxReplacements > 0 && (cfg.ReplaceAfter <= 0 || cfg.ReplacementBumpPercent <= 0) {
		return nil, ErrInvalidSenderConfig
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}

	return &Sender{backend: backend, signer: signer, cfg: cfg}, nil
}

func (s *Sender) SendAndWaitMined(ctx context.Context, req TxRequest) (SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.signer.Address()

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		est, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &req.To,
			Value: value,
			Data:  req.Data,
		})
		if err != nil {
			return SendResult{}, err
		}
		gasLimit = applyGasMultiplier(est, s.cfg.GasLimitMultiplier)
	}

	suggestedTip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return SendResult{}, err
	}
	header, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return SendResult{}, err
	}
	if header.BaseFee == nil || header.BaseFee.Sign() < 0 {
		return SendResult{}, fmt.Errorf("eth: missing baseFee in latest header")
	}
	tipCap, feeCap, err := calc1559Fees(header.BaseFee, suggestedTip, s.cfg.MinTipCap)
	if err != nil {
		return SendResult{}, err
	}

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return SendResult{}, err
	}

	to := req.To
	makeSigned := func(tip, fee *big.Int) (*types.Transaction, common.Hash, error) {
		tx := types.NewTx(&types.DynamicFeeTx{
			ChainID:   s.cfg.ChainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: fee,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      req.Data,
		})
		signed, err := s.signer.SignTx(tx, s.cfg.ChainID)
		if err != nil {
			return nil, common.Hash{}, err
		}
		return signed, signed.Hash(), nil
	}

	signed, h, err := makeSigned(tipCap, feeCap)
	if err != nil {
		return SendResult{}, err
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return SendResult{}, err
	}

	sent := []common.Hash{h}
	lastSentAt := s.cfg.Now()
	replacements := 0

	for {
		// A replacement and its original share a nonce; whichever mined wins.
		for _, txh := range sent {
			receipt, err := s.backend.TransactionReceipt(ctx, txh)
			if err == nil {
				return SendResult{
					From:         from,
					Nonce:        nonce,
					TxHash:       txh,
					Receipt:      receipt,
					Replacements: replacements,
				}, nil
			}
			if !errors.Is(err, ethereum.NotFound) {
				return SendResult{}, err
			}
		}

		if s.cfg.MaxReplacements > 0 && replacements < s.cfg.MaxReplacements && s.cfg.Now().Sub(lastSentAt) >= s.cfg.ReplaceAfter {
			tipCap, feeCap, err = bump1559Fees(tipCap, feeCap, s.cfg.ReplacementBumpPercent)
			if err != nil {
				return SendResult{}, err
			}
			signed, h, err := makeSigned(tipCap, feeCap)
			if err != nil {
				return SendResult{}, err
			}
			if err := s.backend.SendTransaction(ctx, signed); err != nil {
				return SendResult{}, err
			}
			sent = append(sent, h)
			lastSentAt = s.cfg.Now()
			replacements++
			continue
		}

		if err := s.cfg.Sleep(ctx, s.cfg.ReceiptPollInterval); err != nil {
			return SendResult{}, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func applyGasMultiplier(est uint64, mult float64) uint64 {
	if mult <= 1 {
		return est
	}
	out := uint64(math.Ceil(float64(est) * mult))
	if out < est {
		// overflow or float error; fall back to the estimate.
		return est
	}
	return out
}
