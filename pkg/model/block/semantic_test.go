package block_test

import (
	"crypto/ed25519"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

type wallet struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	address *block.Ed25519Address
}

func newWallet(t *testing.T) *wallet {
	pubKey, privKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	return &wallet{
		privKey: privKey,
		pubKey:  pubKey,
		address: block.Ed25519AddressFromPubKey(pubKey),
	}
}

func (w *wallet) signatureUnlock(essence *block.TransactionEssence) *block.SignatureUnlock {
	signature := &block.Ed25519Signature{}
	copy(signature.PublicKey[:], w.pubKey)
	copy(signature.Signature[:], ed25519.Sign(w.privKey, essence.SigningMessage()))

	return &block.SignatureUnlock{Signature: signature}
}

func randOutputID() block.OutputID {
	outputID, err := block.OutputIDFromBytes(randBytes(block.OutputIDLength))
	if err != nil {
		panic(err)
	}

	return outputID
}

func validationContext() *block.SemanticValidationContext {
	return &block.SemanticValidationContext{
		NetworkID:                   14379695462496667894,
		ConfirmingMilestoneIndex:    5,
		ConfirmingMilestoneUnixTime: 500,
	}
}

func TestSemanticValidationBasicTransfer(t *testing.T) {

	ctx := validationContext()
	sender := newWallet(t)
	receiver := newWallet(t)

	consumedOutput := &block.BasicOutput{
		Amount:     1_000_000,
		Conditions: block.UnlockConditions{&block.AddressUnlockCondition{Address: sender.address}},
	}
	consumed := []*block.ConsumedOutput{{OutputID: randOutputID(), Output: consumedOutput}}

	essence := &block.TransactionEssence{
		NetworkID:        ctx.NetworkID,
		Inputs:           []*block.UTXOInput{{TransactionID: consumed[0].OutputID.TransactionID(), Index: consumed[0].OutputID.Index()}},
		InputsCommitment: block.InputsCommitment(consumedOutput),
		Outputs: block.Outputs{
			&block.BasicOutput{
				Amount:     1_000_000,
				Conditions: block.UnlockConditions{&block.AddressUnlockCondition{Address: receiver.address}},
			},
		},
	}

	tx := &block.Transaction{Essence: essence, Unlocks: block.Unlocks{sender.signatureUnlock(essence)}}
	require.NoError(t, tx.SemanticallyValidate(ctx, consumed))

	// a transaction which creates more than it consumes must fail
	essence.Outputs[0].(*block.BasicOutput).Amount = 2_000_000
	tx = &block.Transaction{Essence: essence, Unlocks: block.Unlocks{sender.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrInputOutputSumMismatch)
	essence.Outputs[0].(*block.BasicOutput).Amount = 1_000_000

	// signing with a wallet that does not own the input must fail
	tx = &block.Transaction{Essence: essence, Unlocks: block.Unlocks{receiver.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrEd25519PubKeyAndAddrMismatch)

	// a transaction issued for a different network must fail
	foreignCtx := validationContext()
	foreignCtx.NetworkID++
	tx = &block.Transaction{Essence: essence, Unlocks: block.Unlocks{sender.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(foreignCtx, consumed), block.ErrNetworkIDMismatch)
}

func TestSemanticValidationTimelock(t *testing.T) {

	ctx := validationContext()
	sender := newWallet(t)

	consumedOutput := &block.BasicOutput{
		Amount: 1_000_000,
		Conditions: block.UnlockConditions{
			&block.AddressUnlockCondition{Address: sender.address},
			&block.TimelockUnlockCondition{MilestoneIndex: ctx.ConfirmingMilestoneIndex + 1},
		},
	}
	consumed := []*block.ConsumedOutput{{OutputID: randOutputID(), Output: consumedOutput}}

	essence := &block.TransactionEssence{
		NetworkID:        ctx.NetworkID,
		Inputs:           []*block.UTXOInput{{TransactionID: consumed[0].OutputID.TransactionID(), Index: consumed[0].OutputID.Index()}},
		InputsCommitment: block.InputsCommitment(consumedOutput),
		Outputs: block.Outputs{
			&block.BasicOutput{
				Amount:     1_000_000,
				Conditions: block.UnlockConditions{&block.AddressUnlockCondition{Address: sender.address}},
			},
		},
	}

	// the timelock expires one milestone after the confirming one
	tx := &block.Transaction{Essence: essence, Unlocks: block.Unlocks{sender.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrTimelockNotExpired)

	laterCtx := validationContext()
	laterCtx.ConfirmingMilestoneIndex = ctx.ConfirmingMilestoneIndex + 1
	require.NoError(t, tx.SemanticallyValidate(laterCtx, consumed))
}

func TestSemanticValidationAliasStateTransition(t *testing.T) {

	ctx := validationContext()
	stateController := newWallet(t)
	governor := newWallet(t)

	aliasConditions := block.UnlockConditions{
		&block.StateControllerAddressUnlockCondition{Address: stateController.address},
		&block.GovernorAddressUnlockCondition{Address: governor.address},
	}

	// the consumed output is the alias genesis, its ID derives from the creating output ID
	outputID := randOutputID()
	aliasID := block.AliasIDFromOutputID(outputID)

	consumedOutput := &block.AliasOutput{
		Amount:     1_000_000,
		Conditions: aliasConditions,
	}
	consumed := []*block.ConsumedOutput{{OutputID: outputID, Output: consumedOutput}}

	nextState := &block.AliasOutput{
		Amount:        1_000_000,
		AliasID:       aliasID,
		StateIndex:    1,
		StateMetadata: []byte("state"),
		Conditions:    aliasConditions,
	}

	essence := &block.TransactionEssence{
		NetworkID:        ctx.NetworkID,
		Inputs:           []*block.UTXOInput{{TransactionID: outputID.TransactionID(), Index: outputID.Index()}},
		InputsCommitment: block.InputsCommitment(consumedOutput),
		Outputs:          block.Outputs{nextState},
	}

	// a state transition is unlockable by the state controller
	tx := &block.Transaction{Essence: essence, Unlocks: block.Unlocks{stateController.signatureUnlock(essence)}}
	require.NoError(t, tx.SemanticallyValidate(ctx, consumed))

	// the state index must increase by exactly one
	nextState.StateIndex = 2
	tx = &block.Transaction{Essence: essence, Unlocks: block.Unlocks{stateController.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrChainTransitionInvalid)
	nextState.StateIndex = 1

	// a governance transition must not touch the state
	nextState.StateIndex = 0
	tx = &block.Transaction{Essence: essence, Unlocks: block.Unlocks{governor.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrChainTransitionInvalid)
}

func TestSemanticValidationFoundryMint(t *testing.T) {

	ctx := validationContext()
	stateController := newWallet(t)

	var aliasID block.AliasID
	copy(aliasID[:], randBytes(block.AliasIDLength))
	aliasAddress := aliasID.ToAddress().(*block.AliasAddress)

	aliasConditions := block.UnlockConditions{
		&block.StateControllerAddressUnlockCondition{Address: stateController.address},
		&block.GovernorAddressUnlockCondition{Address: stateController.address},
	}

	consumedAlias := &block.AliasOutput{
		Amount:         1_000_000,
		AliasID:        aliasID,
		StateIndex:     1,
		FoundryCounter: 1,
		Conditions:     aliasConditions,
	}

	consumedFoundry := &block.FoundryOutput{
		Amount:       1_000_000,
		SerialNumber: 1,
		TokenScheme: &block.SimpleTokenScheme{
			MintedTokens:  big.NewInt(100),
			MeltedTokens:  big.NewInt(0),
			MaximumSupply: big.NewInt(1000),
		},
		Conditions: block.UnlockConditions{&block.ImmutableAliasUnlockCondition{Address: aliasAddress}},
	}
	tokenID := consumedFoundry.MustNativeTokenID()

	aliasOutputID := randOutputID()
	foundryOutputID := randOutputID()
	consumed := []*block.ConsumedOutput{
		{OutputID: aliasOutputID, Output: consumedAlias},
		{OutputID: foundryOutputID, Output: consumedFoundry},
	}

	nextAlias := &block.AliasOutput{
		Amount:         1_000_000,
		AliasID:        aliasID,
		StateIndex:     2,
		FoundryCounter: 1,
		Conditions:     aliasConditions,
	}

	// the foundry mints 100 tokens and keeps them on its own output
	nextFoundry := &block.FoundryOutput{
		Amount:       1_000_000,
		NativeTokens: block.NativeTokens{{ID: tokenID, Amount: big.NewInt(100)}},
		SerialNumber: 1,
		TokenScheme: &block.SimpleTokenScheme{
			MintedTokens:  big.NewInt(200),
			MeltedTokens:  big.NewInt(0),
			MaximumSupply: big.NewInt(1000),
		},
		Conditions: block.UnlockConditions{&block.ImmutableAliasUnlockCondition{Address: aliasAddress}},
	}

	essence := &block.TransactionEssence{
		NetworkID: ctx.NetworkID,
		Inputs: []*block.UTXOInput{
			{TransactionID: aliasOutputID.TransactionID(), Index: aliasOutputID.Index()},
			{TransactionID: foundryOutputID.TransactionID(), Index: foundryOutputID.Index()},
		},
		InputsCommitment: block.InputsCommitment(consumedAlias, consumedFoundry),
		Outputs:          block.Outputs{nextAlias, nextFoundry},
	}

	unlocks := func(essence *block.TransactionEssence) block.Unlocks {
		// the foundry is owned by the alias address which gets unlocked by consuming the alias
		return block.Unlocks{stateController.signatureUnlock(essence), &block.AliasUnlock{Reference: 0}}
	}

	tx := &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.NoError(t, tx.SemanticallyValidate(ctx, consumed))

	// the minted supply must never decrease
	nextFoundry.TokenScheme.(*block.SimpleTokenScheme).MintedTokens = big.NewInt(50)
	tx = &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrChainTransitionInvalid)

	// tokens created beyond the declared supply change are unauthorized
	nextFoundry.TokenScheme.(*block.SimpleTokenScheme).MintedTokens = big.NewInt(100)
	tx = &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrNativeTokenSumUnbalanced)

	// the maximum supply is immutable
	nextFoundry.TokenScheme.(*block.SimpleTokenScheme).MintedTokens = big.NewInt(200)
	nextFoundry.TokenScheme.(*block.SimpleTokenScheme).MaximumSupply = big.NewInt(2000)
	tx = &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrChainTransitionInvalid)

	// minting must never exceed the maximum supply
	nextFoundry.TokenScheme.(*block.SimpleTokenScheme).MintedTokens = big.NewInt(5000)
	nextFoundry.TokenScheme.(*block.SimpleTokenScheme).MaximumSupply = big.NewInt(1000)
	tx = &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrChainTransitionInvalid)
}

func TestSemanticValidationFoundryMelt(t *testing.T) {

	ctx := validationContext()
	stateController := newWallet(t)

	var aliasID block.AliasID
	copy(aliasID[:], randBytes(block.AliasIDLength))
	aliasAddress := aliasID.ToAddress().(*block.AliasAddress)

	aliasConditions := block.UnlockConditions{
		&block.StateControllerAddressUnlockCondition{Address: stateController.address},
		&block.GovernorAddressUnlockCondition{Address: stateController.address},
	}

	consumedAlias := &block.AliasOutput{
		Amount:         1_000_000,
		AliasID:        aliasID,
		StateIndex:     1,
		FoundryCounter: 1,
		Conditions:     aliasConditions,
	}

	consumedFoundry := &block.FoundryOutput{
		Amount:       1_000_000,
		SerialNumber: 1,
		TokenScheme: &block.SimpleTokenScheme{
			MintedTokens:  big.NewInt(100),
			MeltedTokens:  big.NewInt(0),
			MaximumSupply: big.NewInt(1000),
		},
		Conditions: block.UnlockConditions{&block.ImmutableAliasUnlockCondition{Address: aliasAddress}},
	}
	tokenID := consumedFoundry.MustNativeTokenID()
	consumedFoundry.NativeTokens = block.NativeTokens{{ID: tokenID, Amount: big.NewInt(100)}}

	aliasOutputID := randOutputID()
	foundryOutputID := randOutputID()
	consumed := []*block.ConsumedOutput{
		{OutputID: aliasOutputID, Output: consumedAlias},
		{OutputID: foundryOutputID, Output: consumedFoundry},
	}

	nextAlias := &block.AliasOutput{
		Amount:         1_000_000,
		AliasID:        aliasID,
		StateIndex:     2,
		FoundryCounter: 1,
		Conditions:     aliasConditions,
	}

	// the foundry melts 5 of the 100 tokens it holds
	nextFoundry := &block.FoundryOutput{
		Amount:       1_000_000,
		NativeTokens: block.NativeTokens{{ID: tokenID, Amount: big.NewInt(95)}},
		SerialNumber: 1,
		TokenScheme: &block.SimpleTokenScheme{
			MintedTokens:  big.NewInt(100),
			MeltedTokens:  big.NewInt(5),
			MaximumSupply: big.NewInt(1000),
		},
		Conditions: block.UnlockConditions{&block.ImmutableAliasUnlockCondition{Address: aliasAddress}},
	}

	essence := &block.TransactionEssence{
		NetworkID: ctx.NetworkID,
		Inputs: []*block.UTXOInput{
			{TransactionID: aliasOutputID.TransactionID(), Index: aliasOutputID.Index()},
			{TransactionID: foundryOutputID.TransactionID(), Index: foundryOutputID.Index()},
		},
		InputsCommitment: block.InputsCommitment(consumedAlias, consumedFoundry),
		Outputs:          block.Outputs{nextAlias, nextFoundry},
	}

	unlocks := func(essence *block.TransactionEssence) block.Unlocks {
		return block.Unlocks{stateController.signatureUnlock(essence), &block.AliasUnlock{Reference: 0}}
	}

	tx := &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.NoError(t, tx.SemanticallyValidate(ctx, consumed))

	// a declared melt of 5 must remove all 5 tokens from the ledger
	nextFoundry.NativeTokens[0].Amount = big.NewInt(100)
	tx = &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrNativeTokenSumUnbalanced)

	nextFoundry.NativeTokens[0].Amount = big.NewInt(97)
	tx = &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrNativeTokenSumUnbalanced)

	// burning below the declared melt is allowed
	nextFoundry.NativeTokens = nil
	tx = &block.Transaction{Essence: essence, Unlocks: unlocks(essence)}
	require.NoError(t, tx.SemanticallyValidate(ctx, consumed))
}

func TestSemanticValidationFoundryGenesis(t *testing.T) {

	ctx := validationContext()
	stateController := newWallet(t)

	var aliasID block.AliasID
	copy(aliasID[:], randBytes(block.AliasIDLength))
	aliasAddress := aliasID.ToAddress().(*block.AliasAddress)

	aliasConditions := block.UnlockConditions{
		&block.StateControllerAddressUnlockCondition{Address: stateController.address},
		&block.GovernorAddressUnlockCondition{Address: stateController.address},
	}

	consumedAlias := &block.AliasOutput{
		Amount:     3_000_000,
		AliasID:    aliasID,
		StateIndex: 1,
		Conditions: aliasConditions,
	}

	outputID := randOutputID()
	consumed := []*block.ConsumedOutput{{OutputID: outputID, Output: consumedAlias}}

	nextAlias := &block.AliasOutput{
		Amount:         1_000_000,
		AliasID:        aliasID,
		StateIndex:     2,
		FoundryCounter: 2,
		Conditions:     aliasConditions,
	}

	newFoundry := func(serial uint32) *block.FoundryOutput {
		return &block.FoundryOutput{
			Amount:       1_000_000,
			SerialNumber: serial,
			TokenScheme: &block.SimpleTokenScheme{
				MintedTokens:  big.NewInt(0),
				MeltedTokens:  big.NewInt(0),
				MaximumSupply: big.NewInt(1000),
			},
			Conditions: block.UnlockConditions{&block.ImmutableAliasUnlockCondition{Address: aliasAddress}},
		}
	}

	essence := &block.TransactionEssence{
		NetworkID:        ctx.NetworkID,
		Inputs:           []*block.UTXOInput{{TransactionID: outputID.TransactionID(), Index: outputID.Index()}},
		InputsCommitment: block.InputsCommitment(consumedAlias),
		Outputs:          block.Outputs{nextAlias, newFoundry(1), newFoundry(2)},
	}

	// two foundries claiming the serials left open by the counter
	tx := &block.Transaction{Essence: essence, Unlocks: block.Unlocks{stateController.signatureUnlock(essence)}}
	require.NoError(t, tx.SemanticallyValidate(ctx, consumed))

	// a serial outside the claimed interval must fail
	essence.Outputs[2].(*block.FoundryOutput).SerialNumber = 3
	tx = &block.Transaction{Essence: essence, Unlocks: block.Unlocks{stateController.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrChainTransitionInvalid)
	essence.Outputs[2].(*block.FoundryOutput).SerialNumber = 2

	// a genesis foundry must not start beyond its maximum supply
	essence.Outputs[2].(*block.FoundryOutput).TokenScheme.(*block.SimpleTokenScheme).MintedTokens = big.NewInt(2000)
	tx = &block.Transaction{Essence: essence, Unlocks: block.Unlocks{stateController.signatureUnlock(essence)}}
	require.ErrorIs(t, tx.SemanticallyValidate(ctx, consumed), block.ErrChainTransitionInvalid)
}
