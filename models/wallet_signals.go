package models

import "strings"

// WalletSignals mirrors the on-chain signal provider's response for a wallet.
// It is transient (never persisted) and may be entirely absent when the
// provider fails — callers treat that as a normal outcome, not an error.
type WalletSignals struct {
	WalletAgeDays    int      `json:"wallet_age_days"`
	TransactionCount int      `json:"transaction_count"`
	ActiveChains     []string `json:"active_chains"`
}

// HasChain reports whether the wallet has activity on chain (case-insensitive).
func (w WalletSignals) HasChain(chain string) bool {
	for _, c := range w.ActiveChains {
		if strings.EqualFold(c, chain) {
			return true
		}
	}
	return false
}

// HasAnyChain reports whether the wallet is active on at least one of chains.
func (w WalletSignals) HasAnyChain(chains []string) bool {
	for _, c := range chains {
		if w.HasChain(c) {
			return true
		}
	}
	return false
}
