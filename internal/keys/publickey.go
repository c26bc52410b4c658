package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// Algorithm is a Casper public key algorithm. Its value is the tag byte
// that prefixes the hex form of the key.
type Algorithm byte

const (
	ED25519   Algorithm = 0x01
	SECP256K1 Algorithm = 0x02
)

const (
	ed25519KeyLen   = 32
	secp256k1KeyLen = 33

	// AccountHashPrefix is the formatted-string prefix of an account hash key.
	AccountHashPrefix = "account-hash-"
)

// ErrInvalidPublicKey is returned for anything that is not a tagged
// ed25519 or compressed secp256k1 public key.
var ErrInvalidPublicKey = errors.New("invalid public key")

// Name returns the lowercase algorithm name used in account hash preimages.
func (a Algorithm) Name() string {
	switch a {
	case ED25519:
		return "ed25519"
	case SECP256K1:
		return "secp256k1"
	default:
		return "unknown"
	}
}

// PublicKey is a Casper account public key.
type PublicKey struct {
	Algorithm Algorithm
	Raw       []byte
}

// ParsePublicKey parses the tagged hex form, e.g. "01" followed by 64 hex
// characters for ed25519.
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(b) == 0 {
		return PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	}

	pk := PublicKey{Algorithm: Algorithm(b[0]), Raw: b[1:]}
	switch pk.Algorithm {
	case ED25519:
		if len(pk.Raw) != ed25519KeyLen {
			return PublicKey{}, fmt.Errorf("%w: ed25519 key must be %d bytes, got %d",
				ErrInvalidPublicKey, ed25519KeyLen, len(pk.Raw))
		}
	case SECP256K1:
		if len(pk.Raw) != secp256k1KeyLen {
			return PublicKey{}, fmt.Errorf("%w: secp256k1 key must be %d bytes, got %d",
				ErrInvalidPublicKey, secp256k1KeyLen, len(pk.Raw))
		}
		if _, err := crypto.DecompressPubkey(pk.Raw); err != nil {
			return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
	default:
		return PublicKey{}, fmt.Errorf("%w: unknown algorithm tag 0x%02x", ErrInvalidPublicKey, b[0])
	}
	return pk, nil
}

// Hex returns the tagged lowercase hex form.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(append([]byte{byte(pk.Algorithm)}, pk.Raw...))
}

func (pk PublicKey) String() string { return pk.Hex() }

// AccountHash returns blake2b-256(algorithm name || 0x00 || raw key).
func (pk PublicKey) AccountHash() [32]byte {
	name := pk.Algorithm.Name()
	preimage := make([]byte, 0, len(name)+1+len(pk.Raw))
	preimage = append(preimage, name...)
	preimage = append(preimage, 0)
	preimage = append(preimage, pk.Raw...)
	return blake2b.Sum256(preimage)
}

// AccountHashHex returns the account hash as bare lowercase hex.
func (pk PublicKey) AccountHashHex() string {
	h := pk.AccountHash()
	return hex.EncodeToString(h[:])
}

// AccountHashString returns the "account-hash-<hex>" formatted key.
func (pk PublicKey) AccountHashString() string {
	return AccountHashPrefix + pk.AccountHashHex()
}
