package block

import (
	"github.com/iotaledger/hive.go/marshalutil"
)

// AliasOutput is an output describing the state of an alias account.
type AliasOutput struct {
	Amount            uint64
	NativeTokens      NativeTokens
	AliasID           AliasID
	StateIndex        uint32
	StateMetadata     []byte
	FoundryCounter    uint32
	Conditions        UnlockConditions
	Features          Features
	ImmutableFeatures Features
}

func (o *AliasOutput) Type() OutputType {
	return OutputAlias
}

func (o *AliasOutput) Deposit() uint64 {
	return o.Amount
}

func (o *AliasOutput) NativeTokenSet() NativeTokens {
	return o.NativeTokens
}

func (o *AliasOutput) UnlockConditionSet() UnlockConditions {
	return o.Conditions
}

func (o *AliasOutput) FeatureSet() Features {
	return o.Features
}

func (o *AliasOutput) ImmutableFeatureSet() Features {
	return o.ImmutableFeatures
}

func (o *AliasOutput) Chain(outputID OutputID) ChainID {
	if o.AliasID.Empty() {
		return AliasIDFromOutputID(outputID)
	}

	return o.AliasID
}

// AliasIDNonEmpty returns the alias ID with the given output ID substituted if the ID is zeroed.
func (o *AliasOutput) AliasIDNonEmpty(outputID OutputID) AliasID {
	if o.AliasID.Empty() {
		return AliasIDFromOutputID(outputID)
	}

	return o.AliasID
}

// StateController returns the state controller address.
func (o *AliasOutput) StateController() Address {
	return o.Conditions.StateControllerAddress().Address
}

// GovernorAddress returns the governor address.
func (o *AliasOutput) GovernorAddress() Address {
	return o.Conditions.GovernorAddress().Address
}

func (o *AliasOutput) Clone() Output {
	return &AliasOutput{
		Amount:            o.Amount,
		NativeTokens:      o.NativeTokens.Clone(),
		AliasID:           o.AliasID,
		StateIndex:        o.StateIndex,
		StateMetadata:     append([]byte{}, o.StateMetadata...),
		FoundryCounter:    o.FoundryCounter,
		Conditions:        append(UnlockConditions{}, o.Conditions...),
		Features:          append(Features{}, o.Features...),
		ImmutableFeatures: append(Features{}, o.ImmutableFeatures...),
	}
}

func (o *AliasOutput) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(OutputAlias))
	mu.WriteUint64(o.Amount)
	o.NativeTokens.serialize(mu)
	mu.WriteBytes(o.AliasID[:])
	mu.WriteUint32(o.StateIndex)
	mu.WriteUint16(uint16(len(o.StateMetadata)))
	mu.WriteBytes(o.StateMetadata)
	mu.WriteUint32(o.FoundryCounter)
	o.Conditions.serialize(mu)
	o.Features.serialize(mu)
	o.ImmutableFeatures.serialize(mu)
}

func (o *AliasOutput) syntacticallyValidate() error {
	if o.Amount == 0 || o.Amount > TokenSupply {
		return ErrInvalidBytes
	}
	if len(o.StateMetadata) > MaxMetadataLength {
		return ErrInvalidBytes
	}
	if err := o.NativeTokens.syntacticallyValidate(); err != nil {
		return err
	}
	if err := o.Conditions.syntacticallyValidate(
		UnlockConditionStateControllerAddress,
		UnlockConditionGovernorAddress,
	); err != nil {
		return err
	}
	if o.Conditions.StateControllerAddress() == nil || o.Conditions.GovernorAddress() == nil {
		return ErrInvalidBytes
	}

	// an alias can never own itself
	for _, condition := range []Address{o.StateController(), o.GovernorAddress()} {
		if aliasAddress, ok := condition.(*AliasAddress); ok && aliasAddress.AliasID() == o.AliasID && !o.AliasID.Empty() {
			return ErrInvalidBytes
		}
	}

	// a genesis alias must start with a clean state
	if o.AliasID.Empty() && (o.StateIndex != 0 || o.FoundryCounter != 0) {
		return ErrInvalidBytes
	}

	if err := o.Features.syntacticallyValidate(
		FeatureSender,
		FeatureMetadata,
	); err != nil {
		return err
	}

	return o.ImmutableFeatures.syntacticallyValidate(
		FeatureIssuer,
		FeatureMetadata,
	)
}

func aliasOutputFromMarshalUtil(mu *marshalutil.MarshalUtil) (*AliasOutput, error) {
	output := &AliasOutput{}

	var err error
	if output.Amount, err = mu.ReadUint64(); err != nil {
		return nil, err
	}
	if output.NativeTokens, err = nativeTokensFromMarshalUtil(mu); err != nil {
		return nil, err
	}

	aliasIDBytes, err := mu.ReadBytes(AliasIDLength)
	if err != nil {
		return nil, err
	}
	copy(output.AliasID[:], aliasIDBytes)

	if output.StateIndex, err = mu.ReadUint32(); err != nil {
		return nil, err
	}

	stateMetadataLength, err := mu.ReadUint16()
	if err != nil {
		return nil, err
	}
	if output.StateMetadata, err = mu.ReadBytes(int(stateMetadataLength)); err != nil {
		return nil, err
	}

	if output.FoundryCounter, err = mu.ReadUint32(); err != nil {
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
