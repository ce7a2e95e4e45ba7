package block

import (
	"github.com/iotaledger/hive.go/marshalutil"
)

// TaggedData is a payload carrying an indexation tag and arbitrary data.
type TaggedData struct {
	Tag  []byte
	Data []byte
}

func (t *TaggedData) PayloadType() PayloadType {
	return PayloadTaggedData
}

func (t *TaggedData) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteUint32(uint32(PayloadTaggedData))
	mu.WriteByte(byte(len(t.Tag)))
	mu.WriteBytes(t.Tag)
	mu.WriteUint32(uint32(len(t.Data)))
	mu.WriteBytes(t.Data)
}

func (t *TaggedData) syntacticallyValidate() error {
	if len(t.Tag) > MaxTagLength {
		return ErrInvalidBytes
	}
	if len(t.Data) > MaxMetadataLength {
		return ErrInvalidBytes
	}

	return nil
}

func taggedDataFromMarshalUtil(mu *marshalutil.MarshalUtil) (*TaggedData, error) {
	taggedData := &TaggedData{}

	tagLength, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}
	if taggedData.Tag, err = mu.ReadBytes(int(tagLength)); err != nil {
		return nil, err
	}

	dataLength, err := mu.ReadUint32()
	if err != nil {
		return nil, err
	}
	if taggedData.Data, err = mu.ReadBytes(int(dataLength)); err != nil {
		return nil, err
	}

	return taggedData, nil
}
