// Package ids generates the opaque identifiers used across the coverage layer.
// Callers must treat every format here as opaque; only uniqueness is
// contractual.
package ids

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed identifier backed by a UUID, e.g. "policy_1b9d6bcd".
func New(prefix string) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if prefix == "" {
		return short
	}
	return prefix + "_" + short
}

func UserID() string         { return New("user") }
func PolicyID() string       { return New("policy") }
func ClaimID() string        { return New("claim") }
func TransactionID() string  { return New("tx") }
func NotificationID() string { return New("ntf") }

// NFTID returns a synthetic coverage certificate reference.
func NFTID() string {
	return fmt.Sprintf("NFT-%03d", 100+randInt(900))
}

// WalletAddress returns a synthetic wallet address: 0x followed by 40
// uppercase hex characters.
func WalletAddress() string {
	return "0x" + strings.ToUpper(randHex(20))
}

// TxHash returns a synthetic transaction hash: 0x followed by 64 hex
// characters.
func TxHash() string {
	return "0x" + randHex(32)
}

func randHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a UUID
		// so id generation stays total.
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:n*2]
	}
	return hex.EncodeToString(buf)
}

func randInt(n int) int {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return int(uuid.New().ID()) % n
	}
	return int(binary.BigEndian.Uint64(buf[:]) % uint64(n))
}
