package types

import "math/big"

// Account tracks the fungible token balances held for a single address. The
// staking engine moves balances between staker accounts and the module vault
// through this record; the token ledger itself lives outside the core.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// NewAccount returns an empty account with an initialised balance map.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// Balance returns the balance held for the given token, never nil.
func (a *Account) Balance(token string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[token]; ok && bal != nil {
		return bal
	}
	return big.NewInt(0)
}

// SetBalance records the balance for the given token, cloning the amount so
// callers cannot mutate stored state afterwards.
func (a *Account) SetBalance(token string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[token] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := &Account{Nonce: a.Nonce, Balances: make(map[string]*big.Int, len(a.Balances))}
	for token, bal := range a.Balances {
		if bal == nil {
			bal = big.NewInt(0)
		}
		clone.Balances[token] = new(big.Int).Set(bal)
	}
	return clone
}
