package signer

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// CredentialProvider yields the signing key of an unlocked session.
type CredentialProvider interface {
	SigningKey(ctx context.Context) (*PrivateKey, error)
}

// MnemonicProvider derives m/44'/coinType'/0'/0/0 from a BIP-39 mnemonic.
// Source is called on every request so a locked session can return an error.
type MnemonicProvider struct {
	Source   func() (string, error)
	CoinType uint32
}

func (p *MnemonicProvider) SigningKey(ctx context.Context) (*PrivateKey, error) {
	if p.Source == nil {
		return nil, engerr.New(engerr.CodeCredential, "wallet is locked")
	}
	mnemonic, err := p.Source()
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeCredential, "signing material unavailable", err)
	}
	return KeyFromMnemonic(mnemonic, p.CoinType)
}

// KeyFromMnemonic derives the first account key for coinType.
func KeyFromMnemonic(mnemonic string, coinType uint32) (*PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeCredential, "invalid mnemonic", err)
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeCredential, "create master key", err)
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + coinType,
		bip32.FirstHardenedChild,
		0,
		0,
	}
	current := master
	for _, idx := range path {
		current, err = current.NewChildKey(idx)
		if err != nil {
			return nil, engerr.Wrap(engerr.CodeCredential, fmt.Sprintf("derive child %d", idx), err)
		}
	}

	raw := current.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return PrivateKeyFromBytes(raw)
}

// HexKeyProvider reads a hex private key through Source.
type HexKeyProvider struct {
	Source func() (string, error)
}

func (p *HexKeyProvider) SigningKey(ctx context.Context) (*PrivateKey, error) {
	if p.Source == nil {
		return nil, engerr.New(engerr.CodeCredential, "wallet is locked")
	}
	s, err := p.Source()
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeCredential, "signing material unavailable", err)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeCredential, "invalid hex key", err)
	}
	key, err := PrivateKeyFromBytes(b)
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeCredential, "invalid hex key", err)
	}
	return key, nil
}

// EnvSource reads a secret from an env var at call time.
func EnvSource(name string) func() (string, error) {
	return func() (string, error) {
		v := os.Getenv(name)
		if v == "" {
			return "", fmt.Errorf("%s is not set", name)
		}
		return v, nil
	}
}

// FileSource reads a secret from a file at call time.
func FileSource(path string) func() (string, error) {
	return func() (string, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
}
