// Package signing isolates message-signature recovery behind a narrow
// interface so the concrete curve implementation stays swappable.
package signing

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Recoverer derives the address that signed message. Implementations return
// an error for malformed signatures; callers compare the recovered address
// against the expected wallet.
type Recoverer interface {
	Recover(message, signature string) (string, error)
}

// EthereumRecoverer recovers addresses from EIP-191 personal-message
// signatures: 65 bytes [R || S || V] hex encoded, V in {0,1,27,28}.
type EthereumRecoverer struct{}

var _ Recoverer = EthereumRecoverer{}

// Recover implements Recoverer.
func (EthereumRecoverer) Recover(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("invalid recovery id %d", sig[64])
	}

	// RecoverCompact wants the recovery code first; Ethereum puts it last.
	compact := make([]byte, 65)
	compact[0] = v + 27
	copy(compact[1:], sig[:64])

	pub, _, err := secpecdsa.RecoverCompact(compact, PersonalHash(message))
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return Address(pub), nil
}

// PersonalHash returns the Keccak-256 digest of the EIP-191 envelope around
// message.
func PersonalHash(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return h.Sum(nil)
}

// Address derives the lower-cased 0x address for a public key.
func Address(pub *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:])
}
