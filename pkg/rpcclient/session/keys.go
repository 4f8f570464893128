package session

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParseKey parses hex-encoded (optionally 0x-prefixed) private key.
func ParseKey(s string) (*ecdsa.PrivateKey, error) {
	k, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return k, nil
}

// DecryptKeystore decrypts an encrypted JSON key (keystore v3 format).
func DecryptKeystore(data []byte, password string) (*ecdsa.PrivateKey, error) {
	k, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}
	return k.PrivateKey, nil
}

// ReadKeystoreFile reads and decrypts a keystore file.
func ReadKeystoreFile(path string, password string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	return DecryptKeystore(data, password)
}
