// Package executor implements the Executor Bridge (C4): the privileged
// service that submits an on-chain pullPayment call for one due
// schedule and records the outcome as a Transaction.
package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/voicepay/scheduler/internal/metrics"
)

// pullPaymentABI packs the single method the recurring-payment contract
// exposes to this service: pull `amount` of `token` from `from` into
// `to`, tagged with the off-chain scheduleId for audit.
const pullPaymentABI = `[{
	"name": "pullPayment",
	"type": "function",
	"inputs": [
		{"name": "token", "type": "address"},
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "amount", "type": "uint256"},
		{"name": "scheduleId", "type": "bytes32"}
	]
}]`

// OnChain submits pullPayment calls against the recurring-payment
// contract, serialized by a mutex that guards the tracked nonce so
// concurrent fires from the Dispatcher never collide on the same
// account nonce.
type OnChain struct {
	client    *ethclient.Client
	auth      *bind.TransactOpts
	address   common.Address
	contract  common.Address
	usdc      common.Address
	abi       abi.ABI
	mu        sync.Mutex
	nextNonce uint64
}

// NewOnChain dials rpcURL, derives the signer address from privateKeyHex,
// and prepares a keyed transactor for the configured chain.
func NewOnChain(ctx context.Context, rpcURL, privateKeyHex, contractAddr, usdcAddr string) (*OnChain, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid executor private key: %w", err)
	}

	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: unexpected key type")
	}
	address := crypto.PubkeyToAddress(*pub)

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	nonce, err := client.PendingNonceAt(ctx, address)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("fetch initial nonce: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(pullPaymentABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	return &OnChain{
		client:    client,
		auth:      auth,
		address:   address,
		contract:  common.HexToAddress(contractAddr),
		usdc:      common.HexToAddress(usdcAddr),
		abi:       parsedABI,
		nextNonce: nonce,
	}, nil
}

func (o *OnChain) Close() {
	o.client.Close()
}

// usdcUnits converts a decimal USDC amount (up to 6 decimal places) to
// its on-chain integer representation.
func usdcUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(6).BigInt()
}

// PullPayment submits one pullPayment transaction and blocks until it
// is mined. A mined transaction that reverted is returned as an error.
// A failed send resyncs the tracked nonce from the chain so the next
// call does not retry with a stale value.
func (o *OnChain) PullPayment(ctx context.Context, payer, recipient common.Address, amount decimal.Decimal, scheduleID [32]byte) (*types.Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	receipt, err := o.pullPaymentLocked(ctx, payer, recipient, amount, scheduleID)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	metrics.ChainCallDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return receipt, err
}

func (o *OnChain) pullPaymentLocked(ctx context.Context, payer, recipient common.Address, amount decimal.Decimal, scheduleID [32]byte) (*types.Receipt, error) {
	data, err := o.abi.Pack("pullPayment", o.usdc, payer, recipient, usdcUnits(amount), scheduleID)
	if err != nil {
		return nil, fmt.Errorf("pack pullPayment: %w", err)
	}

	gasPrice, err := o.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    o.nextNonce,
		To:       &o.contract,
		Value:    big.NewInt(0),
		Gas:      300_000,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := o.auth.Signer(o.address, tx)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := o.client.SendTransaction(ctx, signed); err != nil {
		o.resyncNonce(ctx)
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, o.client, signed)
	if err != nil {
		o.resyncNonce(ctx)
		return nil, fmt.Errorf("wait mined: %w", err)
	}

	o.nextNonce++
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("pullPayment reverted in transaction %s", receipt.TxHash.Hex())
	}
	return receipt, nil
}

func (o *OnChain) resyncNonce(ctx context.Context) {
	nonce, err := o.client.PendingNonceAt(ctx, o.address)
	if err != nil {
		return
	}
	o.nextNonce = nonce
}
