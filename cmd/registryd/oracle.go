package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chainspec/registry/internal/eth"
	"github.com/chainspec/registry/internal/oracle"
	"github.com/chainspec/registry/internal/secrets"
)

type contractOracleConfig struct {
	rpcURL      string
	contract    string
	chainID     uint64
	keyHex      string
	keyFile     string
	keySecret   string
	minTipCap   uint64
	receiptPoll time.Duration
}

// newContractOracle binds the engine's oracle interface to an on-chain
// contract: reads go through eth_call, askQuestion goes through the sender
// with a simulation first so the question id is known before the transaction
// is mined.
func newContractOracle(ctx context.Context, cfg contractOracleConfig) (oracle.Oracle, error) {
	if strings.TrimSpace(cfg.rpcURL) == "" || cfg.chainID == 0 {
		return nil, fmt.Errorf("oracle-driver=contract requires --oracle-rpc-url and --oracle-chain-id")
	}
	if !common.IsHexAddress(strings.TrimSpace(cfg.contract)) {
		return nil, fmt.Errorf("--oracle-contract must be a valid hex address")
	}
	keyHex, err := secrets.KeySource{
		Hex:      cfg.keyHex,
		File:     cfg.keyFile,
		SecretID: cfg.keySecret,
	}.Resolve(ctx)
	if err != nil {
		if errors.Is(err, secrets.ErrInvalidConfig) {
			return nil, fmt.Errorf("oracle-driver=contract needs exactly one of --oracle-key-hex, --oracle-key-file, or --oracle-key-secret: %w", err)
		}
		return nil, fmt.Errorf("load oracle signer key: %w", err)
	}
	key, err := eth.ParsePrivateKeyHex(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse oracle signer key: %w", err)
	}
	signer := eth.NewLocalSigner(key)

	client, err := ethclient.Dial(cfg.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial oracle rpc: %w", err)
	}

	sender, err := eth.NewSender(client, signer, eth.SenderConfig{
		ChainID:             new(big.Int).SetUint64(cfg.chainID),
		GasLimitMultiplier:  1.2,
		MinTipCap:           new(big.Int).SetUint64(cfg.minTipCap),
		ReceiptPollInterval: cfg.receiptPoll,
	})
	if err != nil {
		return nil, fmt.Errorf("init oracle sender: %w", err)
	}

	contract := common.HexToAddress(strings.TrimSpace(cfg.contract))

	call := func(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	}
	from := signer.Address()
	send := func(ctx context.Context, to common.Address, value uint64, data []byte) ([]byte, error) {
		v := new(big.Int).SetUint64(value)
		// Simulate first: the receipt carries no return data, so the call
		// result is the only way to learn the question id.
		ret, err := client.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Value: v, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		if _, err := sender.SendAndWaitMined(ctx, eth.TxRequest{To: to, Data: data, Value: v}); err != nil {
			return nil, err
		}
		return ret, nil
	}

	return oracle.NewContractOracle(contract, call, send)
}
