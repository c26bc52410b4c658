package erc20

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/casper-erc20/internal/keys"
)

// RecipientType says whether a Recipient is an account or a contract.
type RecipientType int

const (
	RecipientAccount RecipientType = iota
	RecipientContract
)

const contractHashPrefix = "hash-"

// Recipient is the target of a transfer, approval or mint: an account
// hash or a contract hash, passed to the contract as a Key.
type Recipient struct {
	Type RecipientType
	Hash [32]byte
}

// AccountRecipient returns the Recipient for an account public key.
func AccountRecipient(pk keys.PublicKey) Recipient {
	return Recipient{Type: RecipientAccount, Hash: pk.AccountHash()}
}

// ParseRecipient accepts a hex public key, "account-hash-<hex>" or
// "hash-<hex>" for a contract.
func ParseRecipient(s string) (Recipient, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, keys.AccountHashPrefix):
		h, err := parseHash32(strings.TrimPrefix(s, keys.AccountHashPrefix))
		if err != nil {
			return Recipient{}, fmt.Errorf("%w: %v", ErrInvalidAccountIdentifier, err)
		}
		return Recipient{Type: RecipientAccount, Hash: h}, nil
	case strings.HasPrefix(s, contractHashPrefix):
		h, err := parseHash32(strings.TrimPrefix(s, contractHashPrefix))
		if err != nil {
			return Recipient{}, fmt.Errorf("%w: %v", ErrInvalidAccountIdentifier, err)
		}
		return Recipient{Type: RecipientContract, Hash: h}, nil
	}
	pk, err := parseAccount(s)
	if err != nil {
		return Recipient{}, err
	}
	return AccountRecipient(pk), nil
}

// Key returns the formatted key passed as a session argument.
func (r Recipient) Key() string {
	if r.Type == RecipientContract {
		return contractHashPrefix + hex.EncodeToString(r.Hash[:])
	}
	return keys.AccountHashPrefix + hex.EncodeToString(r.Hash[:])
}

func (r Recipient) String() string { return r.Key() }

func parseHash32(s string) ([32]byte, error) {
	var h [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}
