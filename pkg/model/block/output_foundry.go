package block

import (
	"math/big"

	"github.com/iotaledger/hive.go/marshalutil"
)

// TokenSchemeType denotes the type of a token scheme.
type TokenSchemeType byte

const (
	// TokenSchemeSimple denotes a SimpleTokenScheme.
	TokenSchemeSimple TokenSchemeType = 0
)

// TokenScheme defines the supply accounting of a native token class.
type TokenScheme interface {
	// Type returns the type of the token scheme.
	Type() TokenSchemeType

	serialize(mu *marshalutil.MarshalUtil)
}

// SimpleTokenScheme tracks the minted and melted supply against a fixed maximum.
type SimpleTokenScheme struct {
	// MintedTokens is the amount of tokens minted over the lifetime of the foundry.
	MintedTokens *big.Int
	// MeltedTokens is the amount of tokens melted over the lifetime of the foundry.
	MeltedTokens *big.Int
	// MaximumSupply is the immutable cap of the circulating supply.
	MaximumSupply *big.Int
}

func (s *SimpleTokenScheme) Type() TokenSchemeType {
	return TokenSchemeSimple
}

// CirculatingSupply returns the currently circulating supply, minted minus melted tokens.
func (s *SimpleTokenScheme) CirculatingSupply() *big.Int {
	return new(big.Int).Sub(s.MintedTokens, s.MeltedTokens)
}

func (s *SimpleTokenScheme) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(TokenSchemeSimple))
	writeUint256(mu, s.MintedTokens)
	writeUint256(mu, s.MeltedTokens)
	writeUint256(mu, s.MaximumSupply)
}

func tokenSchemeFromMarshalUtil(mu *marshalutil.MarshalUtil) (TokenScheme, error) {
	schemeType, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}
	if TokenSchemeType(schemeType) != TokenSchemeSimple {
		return nil, ErrUnknownTokenSchemeType
	}

	scheme := &SimpleTokenScheme{}
	if scheme.MintedTokens, err = readUint256(mu); err != nil {
		return nil, err
	}
	if scheme.MeltedTokens, err = readUint256(mu); err != nil {
		return nil, err
	}
	if scheme.MaximumSupply, err = readUint256(mu); err != nil {
		return nil, err
	}

	return scheme, nil
}

// FoundryOutput is an output controlling the supply of a native token class.
type FoundryOutput struct {
	Amount            uint64
	NativeTokens      NativeTokens
	SerialNumber      uint32
	TokenScheme       TokenScheme
	Conditions        UnlockConditions
	Features          Features
	ImmutableFeatures Features
}

func (o *FoundryOutput) Type() OutputType {
	return OutputFoundry
}

func (o *FoundryOutput) Deposit() uint64 {
	return o.Amount
}

func (o *FoundryOutput) NativeTokenSet() NativeTokens {
	return o.NativeTokens
}

func (o *FoundryOutput) UnlockConditionSet() UnlockConditions {
	return o.Conditions
}

func (o *FoundryOutput) FeatureSet() Features {
	return o.Features
}

func (o *FoundryOutput) ImmutableFeatureSet() Features {
	return o.ImmutableFeatures
}

// ID returns the foundry ID computed from the controlling alias,
// the serial number and the token scheme type.
func (o *FoundryOutput) ID() FoundryID {
	return FoundryIDFromParts(o.Conditions.ImmutableAlias().Address, o.SerialNumber, o.TokenScheme.Type())
}

// MustNativeTokenID returns the ID of the native token class controlled by this foundry.
func (o *FoundryOutput) MustNativeTokenID() NativeTokenID {
	return o.ID()
}

func (o *FoundryOutput) Chain(_ OutputID) ChainID {
	return o.ID()
}

func (o *FoundryOutput) Clone() Output {
	scheme := o.TokenScheme.(*SimpleTokenScheme)

	return &FoundryOutput{
		Amount:       o.Amount,
		NativeTokens: o.NativeTokens.Clone(),
		SerialNumber: o.SerialNumber,
		TokenScheme: &SimpleTokenScheme{
			MintedTokens:  new(big.Int).Set(scheme.MintedTokens),
			MeltedTokens:  new(big.Int).Set(scheme.MeltedTokens),
			MaximumSupply: new(big.Int).Set(scheme.MaximumSupply),
		},
		Conditions:        append(UnlockConditions{}, o.Conditions...),
		Features:          append(Features{}, o.Features...),
		ImmutableFeatures: append(Features{}, o.ImmutableFeatures...),
	}
}

func (o *FoundryOutput) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(OutputFoundry))
	mu.WriteUint64(o.Amount)
	o.NativeTokens.serialize(mu)
	mu.WriteUint32(o.SerialNumber)
	o.TokenScheme.serialize(mu)
	o.Conditions.serialize(mu)
	o.Features.serialize(mu)
	o.ImmutableFeatures.serialize(mu)
}

func (o *FoundryOutput) syntacticallyValidate() error {
	if o.Amount == 0 || o.Amount > TokenSupply {
		return ErrInvalidBytes
	}
	if err := o.NativeTokens.syntacticallyValidate(); err != nil {
		return err
	}
	if err := o.Conditions.syntacticallyValidate(
		UnlockConditionImmutableAlias,
	); err != nil {
		return err
	}
	if o.Conditions.ImmutableAlias() == nil {
		return ErrInvalidBytes
	}

	scheme, ok := o.TokenScheme.(*SimpleTokenScheme)
	if !ok {
		return ErrUnknownTokenSchemeType
	}
	if scheme.MintedTokens == nil || scheme.MeltedTokens == nil || scheme.MaximumSupply == nil {
		return ErrInvalidBytes
	}
	if scheme.MaximumSupply.Sign() <= 0 || scheme.MaximumSupply.Cmp(maxUint256) > 0 {
		return ErrInvalidBytes
	}
	if scheme.MintedTokens.Sign() < 0 || scheme.MeltedTokens.Sign() < 0 {
		return ErrInvalidBytes
	}
	if scheme.MeltedTokens.Cmp(scheme.MintedTokens) > 0 {
		return ErrInvalidBytes
	}
	if scheme.CirculatingSupply().Cmp(scheme.MaximumSupply) > 0 {
		return ErrInvalidBytes
	}

	if err := o.Features.syntacticallyValidate(
		FeatureMetadata,
	); err != nil {
		return err
	}

	return o.ImmutableFeatures.syntacticallyValidate(
		FeatureMetadata,
	)
}

func foundryOutputFromMarshalUtil(mu *marshalutil.MarshalUtil) (*FoundryOutput, error) {
	output := &FoundryOutput{}

	var err error
	if output.Amount, err = mu.ReadUint64(); err != nil {
		return nil, err
	}
	if output.NativeTokens, err = nativeTokensFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if output.SerialNumber, err = mu.ReadUint32(); err != nil {
		return nil, err
	}
	if output.TokenScheme, err = tokenSchemeFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if output.Conditions, err = unlockConditionsFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if output.Features, err = featuresFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if output.ImmutableFeatures, err = featuresFromMarshalUtil(mu); err != nil {
		return nil, err
	}

	return output, nil
}
