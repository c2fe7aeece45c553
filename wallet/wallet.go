package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"io"

	"github.com/mezonai/powledger/common"
	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/logx"
	"github.com/pkg/errors"
)

// Wallet holds an ed25519 keypair. Address is the base58 public key and is the
// only identifier other components ever see.
type Wallet struct {
	privateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	Address    string
}

// NewWallet generates a new wallet from the system CSPRNG.
func NewWallet() (*Wallet, error) {
	return newWalletFromReader(rand.Reader)
}

func newWalletFromReader(r io.Reader) (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.KindWallet, err, lerrors.ErrMsgKeyGeneration)
	}
	return fromKeys(pub, priv), nil
}

// FromSeed derives a wallet deterministically from a 32-byte seed.
func FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, lerrors.NewWalletError("invalid seed length: expected %d, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return fromKeys(priv.Public().(ed25519.PublicKey), priv), nil
}

func fromKeys(pub ed25519.PublicKey, priv ed25519.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: priv,
		PublicKey:  pub,
		Address:    common.EncodeBytesToBase58(pub),
	}
}

// Seed returns the private seed; callers decide whether to reveal it.
func (w *Wallet) Seed() []byte {
	return w.privateKey.Seed()
}

// Sign signs message with the wallet's private key and returns a base58 signature.
func (w *Wallet) Sign(message []byte) (string, error) {
	if len(w.privateKey) != ed25519.PrivateKeySize {
		return "", lerrors.NewSignatureError(lerrors.ErrMsgSigningFailed)
	}
	sig := ed25519.Sign(w.privateKey, message)
	return common.EncodeBytesToBase58(sig), nil
}

// Verify checks signature over message under address. A malformed address or
// signature is a WalletError; a well-formed signature that does not verify is
// reported as false with no error.
func Verify(address string, message []byte, signature string) (bool, error) {
	pub, err := PublicKeyFromAddress(address)
	if err != nil {
		return false, lerrors.Wrap(lerrors.KindWallet, err, lerrors.ErrMsgInvalidPublicKey)
	}
	sig, err := signatureFromBase58(signature)
	if err != nil {
		return false, lerrors.Wrap(lerrors.KindWallet, err, lerrors.ErrMsgInvalidSignature)
	}

	ok := ed25519.Verify(pub, message, sig)
	if !ok {
		logx.Debug("WALLET", "signature rejected for ", address)
	}
	return ok, nil
}

// PublicKeyFromAddress decodes a base58 address into an ed25519 public key.
func PublicKeyFromAddress(address string) (ed25519.PublicKey, error) {
	b, err := common.DecodeBase58ToSizedBytes(address, ed25519.PublicKeySize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode address")
	}
	return ed25519.PublicKey(b), nil
}

func signatureFromBase58(signature string) ([]byte, error) {
	b, err := common.DecodeBase58ToSizedBytes(signature, ed25519.SignatureSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode signature")
	}
	return b, nil
}
