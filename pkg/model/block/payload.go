package block

import (
	"github.com/iotaledger/hive.go/marshalutil"
)

// Payload is the interface for all block and essence payloads.
type Payload interface {
	// PayloadType returns the type of the payload.
	PayloadType() PayloadType

	serialize(mu *marshalutil.MarshalUtil)
}

// PayloadFromMarshalUtil parses a payload from the given MarshalUtil.
func PayloadFromMarshalUtil(mu *marshalutil.MarshalUtil) (Payload, error) {
	payloadType, err := mu.ReadUint32()
	if err != nil {
		return nil, err
	}

	switch PayloadType(payloadType) {
	case PayloadTaggedData:
		return taggedDataFromMarshalUtil(mu)
	case PayloadTransaction:
		return transactionFromMarshalUtil(mu)
	case PayloadMilestone:
		return milestonePayloadFromMarshalUtil(mu)
	default:
		return nil, ErrUnknownPayloadType
	}
}

// serializeOptionalPayload writes the payload prefixed with its length, or a zero length if nil.
func serializeOptionalPayload(mu *marshalutil.MarshalUtil, payload Payload) {
	if payload == nil {
		mu.WriteUint32(0)

		return
	}

	payloadMu := marshalutil.New()
	payload.serialize(payloadMu)
	payloadBytes := payloadMu.Bytes()

	mu.WriteUint32(uint32(len(payloadBytes)))
	mu.WriteBytes(payloadBytes)
}

func optionalPayloadFromMarshalUtil(mu *marshalutil.MarshalUtil) (Payload, error) {
	payloadLength, err := mu.ReadUint32()
	if err != nil {
		return nil, err
	}
	if payloadLength == 0 {
		return nil, nil
	}

	payloadBytes, err := mu.ReadBytes(int(payloadLength))
	if err != nil {
		return nil, err
	}

	return PayloadFromMarshalUtil(marshalutil.New(payloadBytes))
}
