package ids

import (
	"regexp"
	"testing"
)

func TestNew_PrefixFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^policy_[0-9a-f]{8}$`)
	id := New("policy")
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected id format: %s", id)
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := PolicyID()
		if seen[id] {
			t.Fatalf("duplicate id after %d draws: %s", i, id)
		}
		seen[id] = true
	}
}

func TestWalletAddress(t *testing.T) {
	pattern := regexp.MustCompile(`^0x[0-9A-F]{40}$`)
	for i := 0; i < 10; i++ {
		addr := WalletAddress()
		if !pattern.MatchString(addr) {
			t.Fatalf("unexpected wallet address: %s", addr)
		}
	}
}

func TestTxHash(t *testing.T) {
	pattern := regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	for i := 0; i < 10; i++ {
		hash := TxHash()
		if !pattern.MatchString(hash) {
			t.Fatalf("unexpected tx hash: %s", hash)
		}
	}
}

func TestNFTID(t *testing.T) {
	pattern := regexp.MustCompile(`^NFT-\d{3}$`)
	for i := 0; i < 100; i++ {
		id := NFTID()
		if !pattern.MatchString(id) {
			t.Fatalf("unexpected nft id: %s", id)
		}
	}
}
