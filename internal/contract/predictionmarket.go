package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/predictgate/predictgate/internal/domain"
)

const (
	// receiptPollInterval is how often Wait re-checks for a receipt.
	receiptPollInterval = 2 * time.Second

	// receiptTimeout bounds the single blocking confirmation wait.
	receiptTimeout = 120 * time.Second

	// gasMarginPercent is added on top of the node's gas estimate.
	gasMarginPercent = 20
)

// PredictionMarket is a domain.MarketContract implementation bound to one
// deployed contract, one chain, and one signing key. Instances are cheap to
// build and are rebuilt on every session change.
type PredictionMarket struct {
	client  *ethclient.Client
	address common.Address
	chainID uint64
	key     *ecdsa.PrivateKey // nil for a read-only binding
	abi     abi.ABI
	logger  *slog.Logger
}

// marketInfoResult mirrors the named outputs of getMarketInfo.
type marketInfoResult struct {
	Question       string
	EndTime        *big.Int
	IsResolved     bool
	Outcome        bool
	TotalYesAmount *big.Int
	TotalNoAmount  *big.Int
	TotalAmount    *big.Int
	IsOpen         bool
}

// userBetResult mirrors the named outputs of getUserBet.
type userBetResult struct {
	HasPlacedBet bool
	Prediction   bool
	Amount       *big.Int
	HasClaimed   bool
}

// marketOddsResult mirrors the named outputs of getMarketOdds.
type marketOddsResult struct {
	YesPercentage *big.Int
	NoPercentage  *big.Int
}

// call packs a read method, executes eth_call against the contract, and
// unpacks the result into out.
func (pm *PredictionMarket) call(ctx context.Context, out any, method string, args ...any) error {
	data, err := pm.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("contract: pack %s: %w", method, err)
	}

	result, err := pm.client.CallContract(ctx, ethereum.CallMsg{
		To:   &pm.address,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("contract: call %s: %w", method, err)
	}

	if err := pm.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("contract: unpack %s: %w", method, err)
	}
	return nil
}

// Owner returns the contract owner address in 0x hex form.
func (pm *PredictionMarket) Owner(ctx context.Context) (string, error) {
	var owner common.Address
	if err := pm.call(ctx, &owner, "owner"); err != nil {
		return "", err
	}
	return owner.Hex(), nil
}

// ActiveMarketIDs returns the ids of all active markets in contract order.
func (pm *PredictionMarket) ActiveMarketIDs(ctx context.Context) ([]*big.Int, error) {
	var ids []*big.Int
	if err := pm.call(ctx, &ids, "getActiveMarketIds"); err != nil {
		return nil, err
	}
	return ids, nil
}

// MarketInfo returns the raw market record for id.
func (pm *PredictionMarket) MarketInfo(ctx context.Context, id *big.Int) (domain.MarketInfo, error) {
	var res marketInfoResult
	if err := pm.call(ctx, &res, "getMarketInfo", id); err != nil {
		return domain.MarketInfo{}, err
	}
	return domain.MarketInfo{
		Question:       res.Question,
		EndTime:        res.EndTime,
		IsResolved:     res.IsResolved,
		Outcome:        res.Outcome,
		TotalYesAmount: res.TotalYesAmount,
		TotalNoAmount:  res.TotalNoAmount,
		TotalAmount:    res.TotalAmount,
		IsOpen:         res.IsOpen,
	}, nil
}

// UserBet returns account's existing bet on market id, if any.
func (pm *PredictionMarket) UserBet(ctx context.Context, id *big.Int, account string) (domain.BetInfo, error) {
	var res userBetResult
	if err := pm.call(ctx, &res, "getUserBet", id, common.HexToAddress(account)); err != nil {
		return domain.BetInfo{}, err
	}
	return domain.BetInfo{
		HasPlacedBet: res.HasPlacedBet,
		Prediction:   res.Prediction,
		Amount:       res.Amount,
		HasClaimed:   res.HasClaimed,
	}, nil
}

// MarketOdds returns the contract-computed percentage split for market id.
func (pm *PredictionMarket) MarketOdds(ctx context.Context, id *big.Int) (domain.Odds, error) {
	var res marketOddsResult
	if err := pm.call(ctx, &res, "getMarketOdds", id); err != nil {
		return domain.Odds{}, err
	}
	return domain.Odds{
		Yes: res.YesPercentage.Int64(),
		No:  res.NoPercentage.Int64(),
	}, nil
}

// CreateMarket submits createMarket and returns the transaction hash.
func (pm *PredictionMarket) CreateMarket(ctx context.Context, question string, durationSeconds *big.Int) (string, error) {
	return pm.transact(ctx, nil, "createMarket", question, durationSeconds)
}

// ResolveMarket submits resolveMarket and returns the transaction hash.
func (pm *PredictionMarket) ResolveMarket(ctx context.Context, id *big.Int, outcome bool) (string, error) {
	return pm.transact(ctx, nil, "resolveMarket", id, outcome)
}

// DistributeWinnings submits distributeWinnings and returns the transaction
// hash.
func (pm *PredictionMarket) DistributeWinnings(ctx context.Context, id *big.Int) (string, error) {
	return pm.transact(ctx, nil, "distributeWinnings", id)
}

// PlaceBet submits placeBet with amountWei attached as the transaction
// value and returns the transaction hash.
func (pm *PredictionMarket) PlaceBet(ctx context.Context, id *big.Int, prediction bool, amountWei *big.Int) (string, error) {
	return pm.transact(ctx, amountWei, "placeBet", id, prediction)
}

// ClaimWinnings submits claimWinnings and returns the transaction hash.
func (pm *PredictionMarket) ClaimWinnings(ctx context.Context, id *big.Int) (string, error) {
	return pm.transact(ctx, nil, "claimWinnings", id)
}

// transact packs a write method, signs it with the bound key, and submits
// it. It does not wait for inclusion; callers follow up with Wait.
func (pm *PredictionMarket) transact(ctx context.Context, value *big.Int, method string, args ...any) (string, error) {
	if pm.key == nil {
		return "", domain.ErrNoSession
	}
	if value == nil {
		value = new(big.Int)
	}

	data, err := pm.abi.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("contract: pack %s: %w", method, err)
	}

	from := ethcrypto.PubkeyToAddress(pm.key.PublicKey)

	nonce, err := pm.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("contract: nonce for %s: %w", method, err)
	}

	gasPrice, err := pm.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("contract: gas price for %s: %w", method, err)
	}

	gasLimit, err := pm.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &pm.address,
		Value: value,
		Data:  data,
	})
	if err != nil {
		// Estimation failure usually means the call would revert; surface
		// the node's message rather than submitting a doomed transaction.
		return "", fmt.Errorf("contract: estimate %s: %w", method, err)
	}
	gasLimit += gasLimit * gasMarginPercent / 100

	tx := types.NewTransaction(nonce, pm.address, value, gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(pm.chainID)), pm.key)
	if err != nil {
		return "", fmt.Errorf("contract: sign %s: %w", method, err)
	}

	if err := pm.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("contract: send %s: %w", method, err)
	}

	pm.logger.Info("transaction submitted",
		slog.String("method", method),
		slog.String("tx_hash", signedTx.Hash().Hex()),
		slog.Uint64("chain_id", pm.chainID),
	)
	return signedTx.Hash().Hex(), nil
}

// Wait blocks until the transaction is mined, then checks the receipt
// status. A reverted execution is reported as domain.ErrTxFailed.
func (pm *PredictionMarket) Wait(ctx context.Context, txHash string) (domain.TxReceipt, error) {
	hash := common.HexToHash(txHash)

	waitCtx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := pm.client.TransactionReceipt(waitCtx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return domain.TxReceipt{}, fmt.Errorf("%w: execution reverted (tx %s)", domain.ErrTxFailed, txHash)
			}
			return domain.TxReceipt{
				TxHash:      txHash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
			}, nil
		}

		select {
		case <-waitCtx.Done():
			return domain.TxReceipt{}, fmt.Errorf("%w: timed out waiting for receipt %s", domain.ErrTxFailed, txHash)
		case <-ticker.C:
		}
	}
}
