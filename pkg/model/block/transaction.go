package block

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/iotaledger/hive.go/marshalutil"
	"golang.org/x/crypto/blake2b"
)

// TransactionID is the BLAKE2b-256 hash of a serialized transaction payload.
type TransactionID [TransactionIDLength]byte

func (transactionID TransactionID) String() string {
	return hex.EncodeToString(transactionID[:])
}

// OutputID is the identifier of an output.
// It is the transaction ID followed by the big endian encoded output index.
type OutputID [OutputIDLength]byte

// OutputIDFromTransactionIDAndIndex returns the output ID for the given transaction ID and output index.
func OutputIDFromTransactionIDAndIndex(transactionID TransactionID, index uint16) OutputID {
	var outputID OutputID
	copy(outputID[:], transactionID[:])
	binary.BigEndian.PutUint16(outputID[TransactionIDLength:], index)

	return outputID
}

// OutputIDFromBytes parses an output ID from the given bytes.
func OutputIDFromBytes(data []byte) (OutputID, error) {
	var outputID OutputID
	if len(data) != OutputIDLength {
		return outputID, ErrInvalidBytes
	}
	copy(outputID[:], data)

	return outputID, nil
}

// TransactionID returns the ID of the transaction which created the output.
func (outputID OutputID) TransactionID() TransactionID {
	var transactionID TransactionID
	copy(transactionID[:], outputID[:TransactionIDLength])

	return transactionID
}

// Index returns the index of the output within the creating transaction.
func (outputID OutputID) Index() uint16 {
	return binary.BigEndian.Uint16(outputID[TransactionIDLength:])
}

func (outputID OutputID) String() string {
	return hex.EncodeToString(outputID[:])
}

// OutputIDs is a list of output IDs.
type OutputIDs []OutputID

// UTXOInput references an output by the ID of the creating transaction and the output index.
type UTXOInput struct {
	TransactionID TransactionID
	Index         uint16
}

// OutputID returns the ID of the referenced output.
func (input *UTXOInput) OutputID() OutputID {
	return OutputIDFromTransactionIDAndIndex(input.TransactionID, input.Index)
}

func (input *UTXOInput) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteBytes(input.TransactionID[:])
	mu.WriteUint16(input.Index)
}

func utxoInputFromMarshalUtil(mu *marshalutil.MarshalUtil) (*UTXOInput, error) {
	input := &UTXOInput{}

	transactionIDBytes, err := mu.ReadBytes(TransactionIDLength)
	if err != nil {
		return nil, err
	}
	copy(input.TransactionID[:], transactionIDBytes)

	if input.Index, err = mu.ReadUint16(); err != nil {
		return nil, err
	}

	return input, nil
}

// TransactionEssence is the signed part of a transaction.
type TransactionEssence struct {
	// NetworkID is the ID of the network this transaction is valid on.
	NetworkID uint64
	// Inputs are the outputs consumed by the transaction.
	Inputs []*UTXOInput
	// InputsCommitment commits to the content of the consumed outputs.
	InputsCommitment [blake2b.Size256]byte
	// Outputs are the outputs created by the transaction.
	Outputs Outputs
	// Payload is an optional TaggedData payload.
	Payload Payload
}

func (essence *TransactionEssence) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteUint64(essence.NetworkID)
	mu.WriteUint16(uint16(len(essence.Inputs)))
	for _, input := range essence.Inputs {
		input.serialize(mu)
	}
	mu.WriteBytes(essence.InputsCommitment[:])
	essence.Outputs.serialize(mu)
	serializeOptionalPayload(mu, essence.Payload)
}

// SigningMessage returns the BLAKE2b-256 digest of the serialized essence.
// This is the message which is signed by the unlocks.
func (essence *TransactionEssence) SigningMessage() []byte {
	mu := marshalutil.New()
	essence.serialize(mu)
	essenceHash := blake2b.Sum256(mu.Bytes())

	return essenceHash[:]
}

func transactionEssenceFromMarshalUtil(mu *marshalutil.MarshalUtil) (*TransactionEssence, error) {
	essence := &TransactionEssence{}

	var err error
	if essence.NetworkID, err = mu.ReadUint64(); err != nil {
		return nil, err
	}

	inputsCount, err := mu.ReadUint16()
	if err != nil {
		return nil, err
	}
	essence.Inputs = make([]*UTXOInput, inputsCount)
	for i := range essence.Inputs {
		if essence.Inputs[i], err = utxoInputFromMarshalUtil(mu); err != nil {
			return nil, err
		}
	}

	commitmentBytes, err := mu.ReadBytes(blake2b.Size256)
	if err != nil {
		return nil, err
	}
	copy(essence.InputsCommitment[:], commitmentBytes)

	if essence.Outputs, err = outputsFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if essence.Payload, err = optionalPayloadFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if essence.Payload != nil {
		if _, ok := essence.Payload.(*TaggedData); !ok {
			return nil, ErrUnknownPayloadType
		}
	}

	return essence, nil
}

// InputsCommitment computes the commitment over the given consumed outputs.
// The outputs must be passed in the order of the essence inputs.
func InputsCommitment(inputs ...Output) [blake2b.Size256]byte {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}

	for _, input := range inputs {
		outputHash := blake2b.Sum256(OutputBytes(input))
		hasher.Write(outputHash[:])
	}

	var commitment [blake2b.Size256]byte
	copy(commitment[:], hasher.Sum(nil))

	return commitment
}

// Transaction is a payload which moves funds by consuming and creating outputs.
type Transaction struct {
	Essence *TransactionEssence
	Unlocks Unlocks
}

func (tx *Transaction) PayloadType() PayloadType {
	return PayloadTransaction
}

// ID returns the BLAKE2b-256 hash of the serialized transaction payload.
func (tx *Transaction) ID() TransactionID {
	mu := marshalutil.New()
	tx.serialize(mu)

	return TransactionID(blake2b.Sum256(mu.Bytes()))
}

func (tx *Transaction) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteUint32(uint32(PayloadTransaction))
	tx.Essence.serialize(mu)
	tx.Unlocks.serialize(mu)
}

// SyntacticallyValidate validates static properties of the transaction,
// the input and output cardinalities, amounts and the per output constraints.
func (tx *Transaction) SyntacticallyValidate() error {
	essence := tx.Essence

	if len(essence.Inputs) < MinInputsCount || len(essence.Inputs) > MaxInputsCount {
		return ErrInvalidBytes
	}
	if len(essence.Outputs) < MinOutputsCount || len(essence.Outputs) > MaxOutputsCount {
		return ErrInvalidBytes
	}
	if len(tx.Unlocks) != len(essence.Inputs) {
		return ErrInvalidBytes
	}

	// inputs must be unique
	seenInputs := make(map[OutputID]struct{}, len(essence.Inputs))
	for _, input := range essence.Inputs {
		outputID := input.OutputID()
		if _, exists := seenInputs[outputID]; exists {
			return ErrInvalidBytes
		}
		seenInputs[outputID] = struct{}{}
	}

	var createdSum uint64
	nativeTokenCount := 0
	for _, output := range essence.Outputs {
		if err := output.syntacticallyValidate(); err != nil {
			return err
		}

		if createdSum+output.Deposit() < createdSum {
			return ErrInvalidBytes
		}
		createdSum += output.Deposit()
		nativeTokenCount += len(output.NativeTokenSet())
	}
	if createdSum > TokenSupply {
		return ErrInvalidBytes
	}
	if nativeTokenCount > MaxNativeTokensCount {
		return ErrMaxNativeTokensCountExceeded
	}

	for i, unlock := range tx.Unlocks {
		referential, ok := unlock.(ReferentialUnlock)
		if !ok {
			continue
		}
		if int(referential.Ref()) >= i {
			return ErrInvalidInputUnlock
		}
	}

	return nil
}

func transactionFromMarshalUtil(mu *marshalutil.MarshalUtil) (*Transaction, error) {
	tx := &Transaction{}

	var err error
	if tx.Essence, err = transactionEssenceFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if tx.Unlocks, err = unlocksFromMarshalUtil(mu); err != nil {
		return nil, err
	}

	return tx, nil
}
