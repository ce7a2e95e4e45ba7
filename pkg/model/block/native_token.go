package block

import (
	"bytes"
	"math/big"

	"github.com/iotaledger/hive.go/marshalutil"
)

const uint256ByteSize = 32

var (
	// maxUint256 is the maximum value representable by a native token amount.
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// NativeTokenID is the identifier of a native token class.
// It is the foundry ID of the foundry which minted the tokens.
type NativeTokenID = FoundryID

// NativeToken is an amount of tokens of a certain native token class.
type NativeToken struct {
	ID     NativeTokenID
	Amount *big.Int
}

// NativeTokens is a list of native tokens, ordered by their ID.
type NativeTokens []*NativeToken

// Clone returns a deep copy of the native tokens.
func (tokens NativeTokens) Clone() NativeTokens {
	cpy := make(NativeTokens, len(tokens))
	for i, token := range tokens {
		cpy[i] = &NativeToken{
			ID:     token.ID,
			Amount: new(big.Int).Set(token.Amount),
		}
	}

	return cpy
}

// syntacticallyValidate checks that the amounts are in range and
// that the tokens are lexically sorted and unique by their ID.
func (tokens NativeTokens) syntacticallyValidate() error {
	if len(tokens) > MaxNativeTokensCount {
		return ErrMaxNativeTokensCountExceeded
	}

	for i, token := range tokens {
		if token.Amount == nil || token.Amount.Sign() <= 0 || token.Amount.Cmp(maxUint256) > 0 {
			return ErrNativeTokenAmountInvalid
		}

		if i == 0 {
			continue
		}

		switch bytes.Compare(tokens[i-1].ID[:], token.ID[:]) {
		case 0:
			return ErrNativeTokensNotUnique
		case 1:
			return ErrNativeTokensNotSorted
		}
	}

	return nil
}

func (tokens NativeTokens) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(len(tokens)))
	for _, token := range tokens {
		mu.WriteBytes(token.ID[:])
		writeUint256(mu, token.Amount)
	}
}

func nativeTokensFromMarshalUtil(mu *marshalutil.MarshalUtil) (NativeTokens, error) {
	count, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	tokens := make(NativeTokens, count)
	for i := range tokens {
		idBytes, err := mu.ReadBytes(NativeTokenIDLength)
		if err != nil {
			return nil, err
		}

		token := &NativeToken{}
		copy(token.ID[:], idBytes)

		if token.Amount, err = readUint256(mu); err != nil {
			return nil, err
		}
		tokens[i] = token
	}

	return tokens, nil
}

// writeUint256 writes the given amount as 32 bytes in little endian representation.
func writeUint256(mu *marshalutil.MarshalUtil, value *big.Int) {
	valueBytes := value.Bytes()

	// big.Int returns big endian bytes, reverse into a fixed size little endian buffer
	fixed := make([]byte, uint256ByteSize)
	for i, b := range valueBytes {
		fixed[len(valueBytes)-1-i] = b
	}
	mu.WriteBytes(fixed)
}

func readUint256(mu *marshalutil.MarshalUtil) (*big.Int, error) {
	valueBytes, err := mu.ReadBytes(uint256ByteSize)
	if err != nil {
		return nil, err
	}

	reversed := make([]byte, uint256ByteSize)
	for i, b := range valueBytes {
		reversed[uint256ByteSize-1-i] = b
	}

	return new(big.Int).SetBytes(reversed), nil
}
