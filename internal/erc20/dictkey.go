package erc20

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/Mohsinsiddi/casper-erc20/internal/keys"
)

// BalanceKey returns the key of account's entry in the balances
// dictionary: the hex account hash of the public key.
func BalanceKey(account string) (string, error) {
	pk, err := parseAccount(account)
	if err != nil {
		return "", err
	}
	return pk.AccountHashHex(), nil
}

// AllowanceKey returns the key of the (owner, spender) entry in the
// allowances dictionary: the hex blake2b-256 digest of the owner's raw
// account hash followed by the spender's. The order matters.
func AllowanceKey(owner, spender string) (string, error) {
	o, err := parseAccount(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	s, err := parseAccount(spender)
	if err != nil {
		return "", fmt.Errorf("spender: %w", err)
	}
	return allowanceKey(o.AccountHash(), s.AccountHash()), nil
}

func allowanceKey(owner, spender [32]byte) string {
	preimage := make([]byte, 0, 64)
	preimage = append(preimage, owner[:]...)
	preimage = append(preimage, spender[:]...)
	sum := blake2b.Sum256(preimage)
	return hex.EncodeToString(sum[:])
}

func parseAccount(account string) (keys.PublicKey, error) {
	pk, err := keys.ParsePublicKey(account)
	if err != nil {
		return keys.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAccountIdentifier, err)
	}
	return pk, nil
}
