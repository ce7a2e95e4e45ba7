package block

import (
	"bytes"

	"github.com/iotaledger/hive.go/marshalutil"
)

// FeatureType denotes the type of a feature.
type FeatureType byte

const (
	// FeatureSender denotes a SenderFeature.
	FeatureSender FeatureType = 0
	// FeatureIssuer denotes an IssuerFeature.
	FeatureIssuer FeatureType = 1
	// FeatureMetadata denotes a MetadataFeature.
	FeatureMetadata FeatureType = 2
	// FeatureTag denotes a TagFeature.
	FeatureTag FeatureType = 3
)

// Feature is the interface for all output features.
type Feature interface {
	// Type returns the type of the feature.
	Type() FeatureType

	serialize(mu *marshalutil.MarshalUtil)
	equal(other Feature) bool
}

// SenderFeature attests that the sender ident was unlocked in the creating transaction.
type SenderFeature struct {
	Address Address
}

func (f *SenderFeature) Type() FeatureType {
	return FeatureSender
}

func (f *SenderFeature) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(FeatureSender))
	f.Address.serialize(mu)
}

func (f *SenderFeature) equal(other Feature) bool {
	otherFeature, ok := other.(*SenderFeature)

	return ok && addressesEqual(f.Address, otherFeature.Address)
}

// IssuerFeature attests that the issuer ident was unlocked when the chain output was created.
type IssuerFeature struct {
	Address Address
}

func (f *IssuerFeature) Type() FeatureType {
	return FeatureIssuer
}

func (f *IssuerFeature) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(FeatureIssuer))
	f.Address.serialize(mu)
}

func (f *IssuerFeature) equal(other Feature) bool {
	otherFeature, ok := other.(*IssuerFeature)

	return ok && addressesEqual(f.Address, otherFeature.Address)
}

// MetadataFeature attaches arbitrary binary data to an output.
type MetadataFeature struct {
	Data []byte
}

func (f *MetadataFeature) Type() FeatureType {
	return FeatureMetadata
}

func (f *MetadataFeature) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(FeatureMetadata))
	mu.WriteUint16(uint16(len(f.Data)))
	mu.WriteBytes(f.Data)
}

func (f *MetadataFeature) equal(other Feature) bool {
	otherFeature, ok := other.(*MetadataFeature)

	return ok && bytes.Equal(f.Data, otherFeature.Data)
}

// TagFeature attaches an indexation tag to an output.
type TagFeature struct {
	Tag []byte
}

func (f *TagFeature) Type() FeatureType {
	return FeatureTag
}

func (f *TagFeature) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(FeatureTag))
	mu.WriteByte(byte(len(f.Tag)))
	mu.WriteBytes(f.Tag)
}

func (f *TagFeature) equal(other Feature) bool {
	otherFeature, ok := other.(*TagFeature)

	return ok && bytes.Equal(f.Tag, otherFeature.Tag)
}

// Features is a set of features, ordered by their type.
type Features []Feature

// Sender returns the SenderFeature if the set contains one.
func (features Features) Sender() *SenderFeature {
	for _, feature := range features {
		if f, ok := feature.(*SenderFeature); ok {
			return f
		}
	}

	return nil
}

// Issuer returns the IssuerFeature if the set contains one.
func (features Features) Issuer() *IssuerFeature {
	for _, feature := range features {
		if f, ok := feature.(*IssuerFeature); ok {
			return f
		}
	}

	return nil
}

// Metadata returns the MetadataFeature if the set contains one.
func (features Features) Metadata() *MetadataFeature {
	for _, feature := range features {
		if f, ok := feature.(*MetadataFeature); ok {
			return f
		}
	}

	return nil
}

// Tag returns the TagFeature if the set contains one.
func (features Features) Tag() *TagFeature {
	for _, feature := range features {
		if f, ok := feature.(*TagFeature); ok {
			return f
		}
	}

	return nil
}

func (features Features) syntacticallyValidate(allowed ...FeatureType) error {
	allowedSet := make(map[FeatureType]struct{}, len(allowed))
	for _, featureType := range allowed {
		allowedSet[featureType] = struct{}{}
	}

	for i, feature := range features {
		if _, ok := allowedSet[feature.Type()]; !ok {
			return ErrUnknownFeatureType
		}

		switch f := feature.(type) {
		case *MetadataFeature:
			if len(f.Data) == 0 || len(f.Data) > MaxMetadataLength {
				return ErrInvalidBytes
			}
		case *TagFeature:
			if len(f.Tag) == 0 || len(f.Tag) > MaxTagLength {
				return ErrInvalidBytes
			}
		}

		if i == 0 {
			continue
		}

		if features[i-1].Type() >= feature.Type() {
			return ErrInvalidBytes
		}
	}

	return nil
}

func (features Features) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(len(features)))
	for _, feature := range features {
		feature.serialize(mu)
	}
}

func featuresFromMarshalUtil(mu *marshalutil.MarshalUtil) (Features, error) {
	count, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	features := make(Features, count)
	for i := range features {
		if features[i], err = featureFromMarshalUtil(mu); err != nil {
			return nil, err
		}
	}

	return features, nil
}

func featureFromMarshalUtil(mu *marshalutil.MarshalUtil) (Feature, error) {
	featureType, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	switch FeatureType(featureType) {
	case FeatureSender:
		address, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}

		return &SenderFeature{Address: address}, nil

	case FeatureIssuer:
		address, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}

		return &IssuerFeature{Address: address}, nil

	case FeatureMetadata:
		dataLength, err := mu.ReadUint16()
		if err != nil {
			return nil, err
		}
		data, err := mu.ReadBytes(int(dataLength))
		if err != nil {
			return nil, err
		}

		return &MetadataFeature{Data: data}, nil

	case FeatureTag:
		tagLength, err := mu.ReadByte()
		if err != nil {
			return nil, err
		}
		tag, err := mu.ReadBytes(int(tagLength))
		if err != nil {
			return nil, err
		}

		return &TagFeature{Tag: tag}, nil

	default:
		return nil, ErrUnknownFeatureType
	}
}

func featuresEqual(a Features, b Features) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}

	return true
}
