package block

import (
	"crypto/ed25519"

	"github.com/iotaledger/hive.go/marshalutil"
)

// SignatureType denotes the type of a signature.
type SignatureType byte

const (
	// SignatureEd25519 denotes an Ed25519 signature.
	SignatureEd25519 SignatureType = 0
)

const (
	// Ed25519PublicKeyLength is the length of an Ed25519 public key.
	Ed25519PublicKeyLength = ed25519.PublicKeySize
	// Ed25519SignatureLength is the length of an Ed25519 signature.
	Ed25519SignatureLength = ed25519.SignatureSize
)

// Ed25519Signature is a signature over an essence digest with the public key included.
type Ed25519Signature struct {
	PublicKey [Ed25519PublicKeyLength]byte
	Signature [Ed25519SignatureLength]byte
}

// Valid verifies the signature over the given message against the given Ed25519 address.
// The public key must correspond to the address and the signature must verify.
func (s *Ed25519Signature) Valid(message []byte, address *Ed25519Address) error {
	addressFromPubKey := Ed25519AddressFromPubKey(s.PublicKey[:])
	if *addressFromPubKey != *address {
		return ErrEd25519PubKeyAndAddrMismatch
	}

	if !ed25519.Verify(s.PublicKey[:], message, s.Signature[:]) {
		return ErrEd25519SignatureInvalid
	}

	return nil
}

func (s *Ed25519Signature) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(SignatureEd25519))
	mu.WriteBytes(s.PublicKey[:])
	mu.WriteBytes(s.Signature[:])
}

// Ed25519SignatureFromMarshalUtil parses an Ed25519 signature from the given MarshalUtil.
func Ed25519SignatureFromMarshalUtil(mu *marshalutil.MarshalUtil) (*Ed25519Signature, error) {
	signatureType, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}
	if SignatureType(signatureType) != SignatureEd25519 {
		return nil, ErrUnknownUnlockType
	}

	signature := &Ed25519Signature{}

	pubKeyBytes, err := mu.ReadBytes(Ed25519PublicKeyLength)
	if err != nil {
		return nil, err
	}
	copy(signature.PublicKey[:], pubKeyBytes)

	signatureBytes, err := mu.ReadBytes(Ed25519SignatureLength)
	if err != nil {
		return nil, err
	}
	copy(signature.Signature[:], signatureBytes)

	return signature, nil
}
