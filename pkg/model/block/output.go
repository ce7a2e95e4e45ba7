package block

import (
	"github.com/iotaledger/hive.go/marshalutil"
)

// OutputType denotes the type of an output.
type OutputType byte

const (
	// OutputBasic denotes a BasicOutput.
	OutputBasic OutputType = 3
	// OutputAlias denotes an AliasOutput.
	OutputAlias OutputType = 4
	// OutputFoundry denotes a FoundryOutput.
	OutputFoundry OutputType = 5
	// OutputNFT denotes an NFTOutput.
	OutputNFT OutputType = 6
)

// Output is the interface for all transaction outputs.
type Output interface {
	// Type returns the type of the output.
	Type() OutputType
	// Deposit returns the amount of base tokens held by the output.
	Deposit() uint64
	// NativeTokenSet returns the native tokens held by the output.
	NativeTokenSet() NativeTokens
	// UnlockConditionSet returns the unlock conditions of the output.
	UnlockConditionSet() UnlockConditions
	// FeatureSet returns the features of the output.
	FeatureSet() Features
	// Clone returns a deep copy of the output.
	Clone() Output

	serialize(mu *marshalutil.MarshalUtil)
	syntacticallyValidate() error
}

// ChainConstrainedOutput is an output which carries a chain constraint across transactions.
type ChainConstrainedOutput interface {
	Output

	// Chain returns the chain ID of the output.
	// For genesis outputs with a zeroed ID the ID derived from the given output ID is returned.
	Chain(outputID OutputID) ChainID
	// ImmutableFeatureSet returns the immutable features of the output.
	ImmutableFeatureSet() Features
}

// Outputs is a list of outputs.
type Outputs []Output

// ToOutputsByType groups the outputs by their type.
func (outputs Outputs) ToOutputsByType() map[OutputType]Outputs {
	byType := make(map[OutputType]Outputs)
	for _, output := range outputs {
		byType[output.Type()] = append(byType[output.Type()], output)
	}

	return byType
}

func (outputs Outputs) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteUint16(uint16(len(outputs)))
	for _, output := range outputs {
		output.serialize(mu)
	}
}

func outputsFromMarshalUtil(mu *marshalutil.MarshalUtil) (Outputs, error) {
	count, err := mu.ReadUint16()
	if err != nil {
		return nil, err
	}

	outputs := make(Outputs, count)
	for i := range outputs {
		if outputs[i], err = OutputFromMarshalUtil(mu); err != nil {
			return nil, err
		}
	}

	return outputs, nil
}

// OutputFromMarshalUtil parses an output from the given MarshalUtil.
func OutputFromMarshalUtil(mu *marshalutil.MarshalUtil) (Output, error) {
	outputType, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	switch OutputType(outputType) {
	case OutputBasic:
		return basicOutputFromMarshalUtil(mu)
	case OutputAlias:
		return aliasOutputFromMarshalUtil(mu)
	case OutputFoundry:
		return foundryOutputFromMarshalUtil(mu)
	case OutputNFT:
		return nftOutputFromMarshalUtil(mu)
	default:
		return nil, ErrUnknownOutputType
	}
}

// OutputFromBytes parses an output from the given bytes.
func OutputFromBytes(data []byte) (Output, error) {
	return OutputFromMarshalUtil(marshalutil.New(data))
}

// OutputBytes returns the serialized representation of the given output including its type byte.
func OutputBytes(output Output) []byte {
	mu := marshalutil.New()
	output.serialize(mu)

	return mu.Bytes()
}

// BasicOutput is a plain value output without chain constraints.
type BasicOutput struct {
	Amount       uint64
	NativeTokens NativeTokens
	Conditions   UnlockConditions
	Features     Features
}

func (o *BasicOutput) Type() OutputType {
	return OutputBasic
}

func (o *BasicOutput) Deposit() uint64 {
	return o.Amount
}

func (o *BasicOutput) NativeTokenSet() NativeTokens {
	return o.NativeTokens
}

func (o *BasicOutput) UnlockConditionSet() UnlockConditions {
	return o.Conditions
}

func (o *BasicOutput) FeatureSet() Features {
	return o.Features
}

func (o *BasicOutput) Clone() Output {
	return &BasicOutput{
		Amount:       o.Amount,
		NativeTokens: o.NativeTokens.Clone(),
		Conditions:   append(UnlockConditions{}, o.Conditions...),
		Features:     append(Features{}, o.Features...),
	}
}

func (o *BasicOutput) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(OutputBasic))
	mu.WriteUint64(o.Amount)
	o.NativeTokens.serialize(mu)
	o.Conditions.serialize(mu)
	o.Features.serialize(mu)
}

func (o *BasicOutput) syntacticallyValidate() error {
	if o.Amount == 0 || o.Amount > TokenSupply {
		return ErrInvalidBytes
	}
	if err := o.NativeTokens.syntacticallyValidate(); err != nil {
		return err
	}
	if err := o.Conditions.syntacticallyValidate(
		UnlockConditionAddress,
		UnlockConditionStorageDepositReturn,
		UnlockConditionTimelock,
		UnlockConditionExpiration,
	); err != nil {
		return err
	}
	if o.Conditions.Address() == nil {
		return ErrInvalidBytes
	}

	return o.Features.syntacticallyValidate(
		FeatureSender,
		FeatureMetadata,
		FeatureTag,
	)
}

func basicOutputFromMarshalUtil(mu *marshalutil.MarshalUtil) (*BasicOutput, error) {
	output := &BasicOutput{}

	var err error
	if output.Amount, err = mu.ReadUint64(); err != nil {
		return nil, err
	}
	if output.NativeTokens, err = nativeTokensFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if output.Conditions, err = unlockConditionsFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if output.Features, err = featuresFromMarshalUtil(mu); err != nil {
		return nil, err
	}

	return output, nil
}
