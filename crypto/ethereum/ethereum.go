// Package ethereum provides the Ethereum wallet identity primitives used by
// the ballot service: secp256k1 keys, Ethereum-prefixed message signatures
// and address recovery.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/retrozk/ballotd/util"
)

// SignatureLength is the size in bytes of an Ethereum signature (r, s, v).
const SignatureLength = 65

// SignKeys is a secp256k1 keypair bound to an Ethereum address.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty SignKeys. Use Generate or AddHexKey to
// initialize it.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a fresh random keypair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key from its hex representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as hex
// strings.
func (k *SignKeys) HexString() (string, string) {
	pub := hex.EncodeToString(k.PublicKey())
	priv := hex.EncodeToString(k.Private.D.Bytes())
	return pub, priv
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address of the keypair.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed Ethereum address string.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs the message with the Ethereum prefix convention.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(HashEthereumMessage(message), &k.Private)
}

// AddrFromPublicKey derives the Ethereum address from a compressed public
// key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	pubKey, err := ethcrypto.DecompressPubkey(pub)
	if err != nil {
		return common.Address{}, fmt.Errorf("decompress public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// AddrFromSignature recovers the address that produced an Ethereum-prefixed
// signature over message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	pub, err := recoverPubkey(HashEthereumMessage(message), signature)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// HashRaw computes the keccak256 hash of data.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// HashEthereumMessage hashes data with the standard Ethereum signed-message
// prefix.
func HashEthereumMessage(data []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(data))
	return HashRaw(append([]byte(prefix), data...))
}

// recoverPubkey recovers the public key from a 65-byte signature over hash,
// normalizing the recovery id from the wallet convention (27/28).
func recoverPubkey(hash, signature []byte) (*ecdsa.PublicKey, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("signature length is %d, expected %d", len(signature), SignatureLength)
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return nil, fmt.Errorf("recover public key: %w", err)
	}
	return pub, nil
}
