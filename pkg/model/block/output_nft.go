package block

import (
	"github.com/iotaledger/hive.go/marshalutil"
)

// NFTOutput is an output representing a unique non fungible token.
type NFTOutput struct {
	Amount            uint64
	NativeTokens      NativeTokens
	NFTID             NFTID
	Conditions        UnlockConditions
	Features          Features
	ImmutableFeatures Features
}

func (o *NFTOutput) Type() OutputType {
	return OutputNFT
}

func (o *NFTOutput) Deposit() uint64 {
	return o.Amount
}

func (o *NFTOutput) NativeTokenSet() NativeTokens {
	return o.NativeTokens
}

func (o *NFTOutput) UnlockConditionSet() UnlockConditions {
	return o.Conditions
}

func (o *NFTOutput) FeatureSet() Features {
	return o.Features
}

func (o *NFTOutput) ImmutableFeatureSet() Features {
	return o.ImmutableFeatures
}

func (o *NFTOutput) Chain(outputID OutputID) ChainID {
	if o.NFTID.Empty() {
		return NFTIDFromOutputID(outputID)
	}

	return o.NFTID
}

// NFTIDNonEmpty returns the NFT ID with the given output ID substituted if the ID is zeroed.
func (o *NFTOutput) NFTIDNonEmpty(outputID OutputID) NFTID {
	if o.NFTID.Empty() {
		return NFTIDFromOutputID(outputID)
	}

	return o.NFTID
}

func (o *NFTOutput) Clone() Output {
	return &NFTOutput{
		Amount:            o.Amount,
		NativeTokens:      o.NativeTokens.Clone(),
		NFTID:             o.NFTID,
		Conditions:        append(UnlockConditions{}, o.Conditions...),
		Features:          append(Features{}, o.Features...),
		ImmutableFeatures: append(Features{}, o.ImmutableFeatures...),
	}
}

func (o *NFTOutput) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(OutputNFT))
	mu.WriteUint64(o.Amount)
	o.NativeTokens.serialize(mu)
	mu.WriteBytes(o.NFTID[:])
	o.Conditions.serialize(mu)
	o.Features.serialize(mu)
	o.ImmutableFeatures.serialize(mu)
}

func (o *NFTOutput) syntacticallyValidate() error {
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

	// an NFT can never own itself
	if nftAddress, ok := o.Conditions.Address().Address.(*NFTAddress); ok && nftAddress.NFTID() == o.NFTID && !o.NFTID.Empty() {
		return ErrInvalidBytes
	}

	if err := o.Features.syntacticallyValidate(
		FeatureSender,
		FeatureMetadata,
		FeatureTag,
	); err != nil {
		return err
	}

	return o.ImmutableFeatures.syntacticallyValidate(
		FeatureIssuer,
		FeatureMetadata,
	)
}

func nftOutputFromMarshalUtil(mu *marshalutil.MarshalUtil) (*NFTOutput, error) {
	output := &NFTOutput{}

	var err error
	if output.Amount, err = mu.ReadUint64(); err != nil {
		return nil, err
	}
	if output.NativeTokens, err = nativeTokensFromMarshalUtil(mu); err != nil {
		return nil, err
	}

	nftIDBytes, err := mu.ReadBytes(NFTIDLength)
	if err != nil {
		return nil, err
	}
	copy(output.NFTID[:], nftIDBytes)

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
