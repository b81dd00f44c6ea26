package contract

import (
	"crypto/ecdsa"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/predictgate/predictgate/internal/config"
	"github.com/predictgate/predictgate/internal/domain"
)

// Factory resolves deployed contract addresses per chain and produces
// bindings scoped to one signer/chain pair. The factory itself is stateless;
// a binding becomes stale whenever the session account or chain changes and
// callers must request a fresh one.
type Factory struct {
	chains map[uint64]config.ChainConfig
	logger *slog.Logger
}

// NewFactory builds a Factory from the configured chain table.
func NewFactory(chains []config.ChainConfig, logger *slog.Logger) *Factory {
	byID := make(map[uint64]config.ChainConfig, len(chains))
	for _, ch := range chains {
		byID[ch.ID] = ch
	}
	return &Factory{
		chains: byID,
		logger: logger.With(slog.String("component", "contract_factory")),
	}
}

// Supported reports whether the chain has a deployed contract address.
func (f *Factory) Supported(chainID uint64) bool {
	_, ok := f.chains[chainID]
	return ok
}

// ChainName returns the display name for a supported chain, or
// "Unsupported Network" otherwise.
func (f *Factory) ChainName(chainID uint64) string {
	if ch, ok := f.chains[chainID]; ok {
		return ch.Name
	}
	return "Unsupported Network"
}

// Binding returns a contract binding for the given chain, bound to the
// given client and signing key. The second return value is false when the
// chain is not in the address table; that is an expected degraded mode, not
// an error, and no contract call is ever attempted for such chains.
func (f *Factory) Binding(client *ethclient.Client, chainID uint64, key *ecdsa.PrivateKey) (domain.MarketContract, bool) {
	ch, ok := f.chains[chainID]
	if !ok {
		f.logger.Debug("no contract address for chain",
			slog.Uint64("chain_id", chainID),
		)
		return nil, false
	}

	return &PredictionMarket{
		client:  client,
		address: common.HexToAddress(ch.ContractAddress),
		chainID: chainID,
		key:     key,
		abi:     predictionMarketABI(),
		logger:  f.logger,
	}, true
}
