package testsuite

import (
	"crypto/ed25519"
	"fmt"
	"math/rand"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
	"github.com/iotaledger/bee-sub000/pkg/testsuite/utils"
)

// BlockBuilder is used to build blocks with transaction or tagged data payloads.
type BlockBuilder struct {
	te  *TestEnvironment
	tag string

	parents block.BlockIDs

	fromWallet *utils.HDWallet
	toWallet   *utils.HDWallet

	amount uint64

	fakeInputs  bool
	outputToUse *utxo.Output
}

// Block is a block created by the BlockBuilder.
type Block struct {
	builder *BlockBuilder
	block   *storage.Block

	consumedOutputs []*utxo.Output
	sentOutput      *utxo.Output
	remainderOutput *utxo.Output

	booked        bool
	storedBlockID block.BlockID
}

func (te *TestEnvironment) NewBlockBuilder(tag string) *BlockBuilder {
	return &BlockBuilder{
		te:  te,
		tag: tag,
	}
}

func (b *BlockBuilder) Parents(parents block.BlockIDs) *BlockBuilder {
	b.parents = parents
	return b
}

func (b *BlockBuilder) FromWallet(wallet *utils.HDWallet) *BlockBuilder {
	b.fromWallet = wallet
	return b
}

func (b *BlockBuilder) ToWallet(wallet *utils.HDWallet) *BlockBuilder {
	b.toWallet = wallet
	return b
}

func (b *BlockBuilder) Amount(amount uint64) *BlockBuilder {
	b.amount = amount
	return b
}

func (b *BlockBuilder) FakeInputs() *BlockBuilder {
	b.fakeInputs = true
	return b
}

func (b *BlockBuilder) UsingOutput(output *utxo.Output) *BlockBuilder {
	b.outputToUse = output
	return b
}

// BuildTaggedData builds a block with a tagged data payload.
func (b *BlockBuilder) BuildTaggedData() *Block {

	require.NotEmpty(b.te.TestInterface, b.tag)
	require.NotNil(b.te.TestInterface, b.parents)

	blk := &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         b.parents.RemoveDupsAndSort(),
		Payload:         &block.TaggedData{Tag: []byte(b.tag)},
	}

	storableBlock, err := storage.NewBlock(blk)
	require.NoError(b.te.TestInterface, err)

	return &Block{
		builder: b,
		block:   storableBlock,
	}
}

// Build builds a block with a value transaction payload.
func (b *BlockBuilder) Build() *Block {

	require.True(b.te.TestInterface, b.amount > 0)

	fromAddr := b.fromWallet.Address()
	toAddr := b.toWallet.Address()

	var consumedInputs []*utxo.Output
	var consumedAmount uint64

	var outputsThatCanBeConsumed []*utxo.Output

	if b.outputToUse != nil {
		// only use the given output
		outputsThatCanBeConsumed = append(outputsThatCanBeConsumed, b.outputToUse)
	} else {
		if b.fakeInputs {
			// add a fake output with enough balance to create a valid transaction
			fakeTransactionID := block.TransactionID{}
			copy(fakeTransactionID[:], randBytes(block.TransactionIDLength))

			fakeOutput := utxo.CreateOutput(block.OutputIDFromTransactionIDAndIndex(fakeTransactionID, 0), block.EmptyBlockID, 0, 0, &block.BasicOutput{
				Amount: b.amount,
				Conditions: block.UnlockConditions{
					&block.AddressUnlockCondition{
						Address: fromAddr,
					},
				},
			})
			outputsThatCanBeConsumed = append(outputsThatCanBeConsumed, fakeOutput)
		} else {
			outputsThatCanBeConsumed = b.fromWallet.Outputs()
		}
	}

	require.NotEmpty(b.te.TestInterface, outputsThatCanBeConsumed)

	for _, outputThatCanBeConsumed := range outputsThatCanBeConsumed {
		consumedInputs = append(consumedInputs, outputThatCanBeConsumed)
		consumedAmount += outputThatCanBeConsumed.Deposit()

		if consumedAmount >= b.amount {
			break
		}
	}

	require.GreaterOrEqual(b.te.TestInterface, consumedAmount, b.amount)

	inputs := make([]*block.UTXOInput, 0, len(consumedInputs))
	consumedBlockOutputs := make(block.Outputs, 0, len(consumedInputs))
	for _, consumedInput := range consumedInputs {
		outputID := consumedInput.OutputID()
		inputs = append(inputs, &block.UTXOInput{
			TransactionID: outputID.TransactionID(),
			Index:         outputID.Index(),
		})
		consumedBlockOutputs = append(consumedBlockOutputs, consumedInput.Output())
	}

	outputs := block.Outputs{
		&block.BasicOutput{
			Amount: b.amount,
			Conditions: block.UnlockConditions{
				&block.AddressUnlockCondition{
					Address: toAddr,
				},
			},
		},
	}

	var remainderAmount uint64
	if b.amount < consumedAmount {
		// send remainder back to fromWallet
		remainderAmount = consumedAmount - b.amount
		outputs = append(outputs, &block.BasicOutput{
			Amount: remainderAmount,
			Conditions: block.UnlockConditions{
				&block.AddressUnlockCondition{
					Address: fromAddr,
				},
			},
		})
	}

	require.NotEmpty(b.te.TestInterface, b.tag)

	essence := &block.TransactionEssence{
		NetworkID:        b.te.networkID,
		Inputs:           inputs,
		InputsCommitment: block.InputsCommitment(consumedBlockOutputs...),
		Outputs:          outputs,
		Payload:          &block.TaggedData{Tag: []byte(b.tag)},
	}

	// sign the essence with the key of the sending wallet
	privKey, pubKey := b.fromWallet.KeyPair()
	signature := ed25519.Sign(privKey, essence.SigningMessage())

	edSignature := &block.Ed25519Signature{}
	copy(edSignature.PublicKey[:], pubKey)
	copy(edSignature.Signature[:], signature)

	unlocks := block.Unlocks{&block.SignatureUnlock{Signature: edSignature}}
	for i := 1; i < len(inputs); i++ {
		// all inputs are owned by the same address
		unlocks = append(unlocks, &block.ReferenceUnlock{Reference: 0})
	}

	transaction := &block.Transaction{
		Essence: essence,
		Unlocks: unlocks,
	}

	require.NotNil(b.te.TestInterface, b.parents)

	blk := &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         b.parents.RemoveDupsAndSort(),
		Payload:         transaction,
	}

	storableBlock, err := storage.NewBlock(blk)
	require.NoError(b.te.TestInterface, err)

	log := fmt.Sprintf("Send %d tokens from %s to %s and remaining %d tokens to original wallet", b.amount, b.fromWallet.Name(), b.toWallet.Name(), remainderAmount)
	if b.outputToUse != nil {
		log += fmt.Sprintf(" using UTXO: %s [%d]", b.outputToUse.OutputID().String(), b.outputToUse.OutputType())
	}
	fmt.Println(log)

	var sentOutput *utxo.Output
	var remainderOutput *utxo.Output

	// compute the outputs that get created in the ledger by this transaction
	for i := range essence.Outputs {
		output, err := utxo.NewOutput(storableBlock.BlockID(), 0, 0, transaction, uint16(i))
		require.NoError(b.te.TestInterface, err)

		basicOutput, isBasic := output.Output().(*block.BasicOutput)
		require.True(b.te.TestInterface, isBasic)

		outputAddress := basicOutput.Conditions.Address().Address

		if outputAddress.Equal(toAddr) && basicOutput.Amount == b.amount {
			sentOutput = output
			continue
		}

		if remainderAmount > 0 && outputAddress.Equal(fromAddr) && basicOutput.Amount == remainderAmount {
			remainderOutput = output
		}
	}

	return &Block{
		builder:         b,
		block:           storableBlock,
		consumedOutputs: consumedInputs,
		sentOutput:      sentOutput,
		remainderOutput: remainderOutput,
	}
}

// Store stores the block in the test environment.
func (m *Block) Store() *Block {
	require.Equal(m.builder.te.TestInterface, block.EmptyBlockID, m.storedBlockID)
	m.storedBlockID = m.builder.te.StoreBlock(m.block).Block().BlockID()
	return m
}

// BookOnWallets books the consumed and created outputs on the corresponding wallets.
func (m *Block) BookOnWallets() *Block {

	require.False(m.builder.te.TestInterface, m.booked)
	m.builder.fromWallet.BookSpents(m.consumedOutputs)
	m.builder.toWallet.BookOutput(m.sentOutput)
	m.builder.fromWallet.BookOutput(m.remainderOutput)
	m.booked = true

	return m
}

// GeneratedUTXO returns the UTXO that was sent to the recipient wallet.
func (m *Block) GeneratedUTXO() *utxo.Output {
	require.NotNil(m.builder.te.TestInterface, m.sentOutput)
	return m.sentOutput
}

// RemainderUTXO returns the UTXO that was sent back to the sender wallet.
func (m *Block) RemainderUTXO() *utxo.Output {
	require.NotNil(m.builder.te.TestInterface, m.remainderOutput)
	return m.remainderOutput
}

// StoredBlock returns the stored block.
func (m *Block) StoredBlock() *storage.Block {
	return m.block
}

// StoredBlockID returns the block ID of the stored block.
func (m *Block) StoredBlockID() block.BlockID {
	require.NotEqual(m.builder.te.TestInterface, block.EmptyBlockID, m.storedBlockID)
	return m.storedBlockID
}

// returns length amount random bytes.
func randBytes(length int) []byte {
	var b []byte
	for i := 0; i < length; i++ {
		b = append(b, byte(rand.Intn(256)))
	}
	return b
}
