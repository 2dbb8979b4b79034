package signer

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160"
)

// PrivateKey is a secp256k1 signing key. It only lives in process memory.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// PubKey returns the 33-byte compressed public key.
func (k *PrivateKey) PubKey() []byte {
	return k.key.PubKey().SerializeCompressed()
}

// Address is bech32(prefix, ripemd160(sha256(pubkey))).
func (k *PrivateKey) Address(prefix string) (string, error) {
	return AddressFromPubKey(prefix, k.PubKey())
}

func AddressFromPubKey(prefix string, pub []byte) (string, error) {
	sha := sha256.Sum256(pub)
	h := ripemd160.New()
	h.Write(sha[:])
	conv, err := bech32.ConvertBits(h.Sum(nil), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert address bits: %w", err)
	}
	addr, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", fmt.Errorf("encode address: %w", err)
	}
	return addr, nil
}

// Sign returns the 64-byte r||s signature over sha256(signDoc), low-S.
func (k *PrivateKey) Sign(signDoc []byte) []byte {
	hash := sha256.Sum256(signDoc)
	compact := ecdsa.SignCompact(k.key, hash[:], true)
	// first byte is the recovery code
	return compact[1:]
}

// Zero wipes the key.
func (k *PrivateKey) Zero() {
	k.key.Zero()
}
