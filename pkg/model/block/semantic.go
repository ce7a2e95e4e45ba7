package block

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// SemanticValidationContext carries the ledger context under which a transaction is validated.
type SemanticValidationContext struct {
	// NetworkID is the ID of the network the node operates on.
	NetworkID uint64
	// ConfirmingMilestoneIndex is the index of the milestone which confirms the transaction.
	ConfirmingMilestoneIndex milestone.Index
	// ConfirmingMilestoneUnixTime is the timestamp of the milestone which confirms the transaction.
	ConfirmingMilestoneUnixTime uint32
}

// ConsumedOutput is a resolved transaction input.
type ConsumedOutput struct {
	OutputID OutputID
	Output   Output
}

// chainContext tracks a chain constrained output on one side of a transaction.
type chainContext struct {
	chainID     ChainID
	outputIndex int
	output      ChainConstrainedOutput
}

// SemanticallyValidate validates the transaction against the given resolved inputs.
// The consumed outputs must be passed in the order of the essence inputs.
// All returned errors unwrap to one of the semantic sentinel errors of this package.
func (tx *Transaction) SemanticallyValidate(ctx *SemanticValidationContext, consumed []*ConsumedOutput) error {
	essence := tx.Essence

	if len(consumed) != len(essence.Inputs) {
		return ErrMissingUTXO
	}
	if essence.NetworkID != ctx.NetworkID {
		return ErrNetworkIDMismatch
	}

	inputs := make([]Output, len(consumed))
	for i, consumedOutput := range consumed {
		inputs[i] = consumedOutput.Output
	}
	if InputsCommitment(inputs...) != essence.InputsCommitment {
		return ErrInvalidInputsCommitment
	}

	// consumed side
	var consumedSum uint64
	consumedTokenCount := 0
	tokenDiffs := make(map[NativeTokenID]*big.Int)
	inChains := make(map[string]*chainContext)

	for i, consumedOutput := range consumed {
		output := consumedOutput.Output
		consumedSum += output.Deposit()

		for _, token := range output.NativeTokenSet() {
			consumedTokenCount++
			diff, exists := tokenDiffs[token.ID]
			if !exists {
				diff = new(big.Int)
				tokenDiffs[token.ID] = diff
			}
			diff.Sub(diff, token.Amount)
		}

		if timelock := output.UnlockConditionSet().Timelock(); timelock != nil {
			if timelock.Locked(ctx.ConfirmingMilestoneIndex, ctx.ConfirmingMilestoneUnixTime) {
				return ErrTimelockNotExpired
			}
		}

		if chainOutput, ok := output.(ChainConstrainedOutput); ok {
			chainID := chainOutput.Chain(consumedOutput.OutputID)
			inChains[chainID.Key()] = &chainContext{chainID: chainID, outputIndex: i, output: chainOutput}
		}
	}
	if consumedTokenCount > MaxNativeTokensCount {
		return ErrMaxNativeTokensCountExceeded
	}

	// created side
	var createdSum uint64
	outChains := make(map[string]*chainContext)

	for i, output := range essence.Outputs {
		createdSum += output.Deposit()

		for _, token := range output.NativeTokenSet() {
			diff, exists := tokenDiffs[token.ID]
			if !exists {
				diff = new(big.Int)
				tokenDiffs[token.ID] = diff
			}
			diff.Add(diff, token.Amount)
		}

		chainOutput, ok := output.(ChainConstrainedOutput)
		if !ok {
			continue
		}

		chainID := chainOutput.Chain(OutputID{})
		if chainID.Empty() {
			// a genesis alias or NFT, its ID is derived once the creating output ID is known
			continue
		}

		key := chainID.Key()
		if _, exists := outChains[key]; exists {
			return errors.Wrapf(ErrChainTransitionInvalid, "chain %s occurs multiple times on the output side", chainID)
		}
		outChains[key] = &chainContext{chainID: chainID, outputIndex: i, output: chainOutput}
	}

	if consumedSum != createdSum {
		return ErrInputOutputSumMismatch
	}

	// unlocks
	signingMessage := essence.SigningMessage()
	unlockedIdents := make(map[string]int)

	for i, consumedOutput := range consumed {
		ident, err := tx.identToUnlock(ctx, consumedOutput, outChains)
		if err != nil {
			return err
		}

		if err := unlockIdent(ident, tx.Unlocks[i], i, signingMessage, unlockedIdents); err != nil {
			return err
		}

		// consuming a chain output also unlocks its chain address for later inputs
		if chainOutput, ok := consumedOutput.Output.(ChainConstrainedOutput); ok {
			chainID := chainOutput.Chain(consumedOutput.OutputID)
			if address := chainID.ToAddress(); address != nil {
				if _, exists := unlockedIdents[address.Key()]; !exists {
					unlockedIdents[address.Key()] = i
				}
			}
		}
	}

	// sender and issuer features
	for _, output := range essence.Outputs {
		if sender := output.FeatureSet().Sender(); sender != nil {
			if _, unlocked := unlockedIdents[sender.Address.Key()]; !unlocked {
				return ErrSenderFeatureNotUnlocked
			}
		}

		chainOutput, ok := output.(ChainConstrainedOutput)
		if !ok {
			continue
		}
		if !chainOutput.Chain(OutputID{}).Empty() {
			// not a genesis output, issuer was checked at creation
			continue
		}
		if issuer := chainOutput.ImmutableFeatureSet().Issuer(); issuer != nil {
			if _, unlocked := unlockedIdents[issuer.Address.Key()]; !unlocked {
				return ErrIssuerFeatureNotUnlocked
			}
		}
	}

	if err := tx.validateStorageDepositReturns(ctx, consumed); err != nil {
		return err
	}

	mintedDeltas, err := tx.validateChainTransitions(inChains, outChains)
	if err != nil {
		return err
	}

	// the net token delta must be covered by the delta the corresponding foundry
	// declares, a declared melt requires the tokens to actually leave the ledger
	// and burning beyond the authorized delta is always allowed
	for tokenID, diff := range tokenDiffs {
		authorized, exists := mintedDeltas[tokenID]
		if !exists {
			authorized = new(big.Int)
		}
		if diff.Cmp(authorized) > 0 {
			return ErrNativeTokenSumUnbalanced
		}
	}

	return nil
}

// identToUnlock resolves the address which needs to be unlocked to consume the given output.
func (tx *Transaction) identToUnlock(ctx *SemanticValidationContext, consumedOutput *ConsumedOutput, outChains map[string]*chainContext) (Address, error) {
	switch output := consumedOutput.Output.(type) {
	case *AliasOutput:
		aliasID := output.AliasIDNonEmpty(consumedOutput.OutputID)

		next, transitions := outChains[aliasID.Key()]
		if !transitions {
			// destruction is a governance transition
			return output.GovernorAddress(), nil
		}

		nextAlias, ok := next.output.(*AliasOutput)
		if !ok {
			return nil, errors.Wrapf(ErrChainTransitionInvalid, "alias %s transitions to a non alias output", aliasID)
		}

		switch nextAlias.StateIndex {
		case output.StateIndex + 1:
			return output.StateController(), nil
		case output.StateIndex:
			return output.GovernorAddress(), nil
		default:
			return nil, errors.Wrapf(ErrChainTransitionInvalid, "alias %s state index changes from %d to %d", aliasID, output.StateIndex, nextAlias.StateIndex)
		}

	case *FoundryOutput:
		return output.Conditions.ImmutableAlias().Address, nil

	default:
		conditions := output.UnlockConditionSet()
		address := conditions.Address().Address
		if expiration := conditions.Expiration(); expiration != nil {
			// once expired only the return address can claim the output
			if expiration.Expired(ctx.ConfirmingMilestoneIndex, ctx.ConfirmingMilestoneUnixTime) {
				address = expiration.ReturnAddress
			}
		}

		return address, nil
	}
}

func unlockIdent(ident Address, unlock Unlock, inputIndex int, signingMessage []byte, unlockedIdents map[string]int) error {
	switch address := ident.(type) {
	case *Ed25519Address:
		switch u := unlock.(type) {
		case *SignatureUnlock:
			if _, alreadyUnlocked := unlockedIdents[address.Key()]; alreadyUnlocked {
				return errors.Wrapf(ErrInvalidInputUnlock, "input %d must use a reference unlock, address already unlocked", inputIndex)
			}
			if err := u.Signature.Valid(signingMessage, address); err != nil {
				return err
			}
			unlockedIdents[address.Key()] = inputIndex

			return nil

		case *ReferenceUnlock:
			referencedIndex, unlocked := unlockedIdents[address.Key()]
			if !unlocked || int(u.Reference) != referencedIndex {
				return errors.Wrapf(ErrInvalidInputUnlock, "input %d references a non matching unlock %d", inputIndex, u.Reference)
			}

			return nil

		default:
			return errors.Wrapf(ErrInvalidInputUnlock, "input %d owned by an ed25519 address carries a %T", inputIndex, unlock)
		}

	case *AliasAddress:
		u, ok := unlock.(*AliasUnlock)
		if !ok {
			return errors.Wrapf(ErrInvalidInputUnlock, "input %d owned by an alias address carries a %T", inputIndex, unlock)
		}
		referencedIndex, unlocked := unlockedIdents[address.Key()]
		if !unlocked || int(u.Reference) != referencedIndex {
			return errors.Wrapf(ErrInvalidInputUnlock, "input %d references a non matching alias unlock %d", inputIndex, u.Reference)
		}

		return nil

	case *NFTAddress:
		u, ok := unlock.(*NFTUnlock)
		if !ok {
			return errors.Wrapf(ErrInvalidInputUnlock, "input %d owned by an NFT address carries a %T", inputIndex, unlock)
		}
		referencedIndex, unlocked := unlockedIdents[address.Key()]
		if !unlocked || int(u.Reference) != referencedIndex {
			return errors.Wrapf(ErrInvalidInputUnlock, "input %d references a non matching NFT unlock %d", inputIndex, u.Reference)
		}

		return nil

	default:
		return errors.Wrapf(ErrInvalidInputUnlock, "input %d has an unknown ident type %T", inputIndex, ident)
	}
}

// validateStorageDepositReturns checks that every consumed output carrying a storage
// deposit return unlock condition is paid back within this transaction, unless the
// output expired and is claimed by the return address itself.
func (tx *Transaction) validateStorageDepositReturns(ctx *SemanticValidationContext, consumed []*ConsumedOutput) error {
	type returnCandidate struct {
		address Address
		amount  uint64
		used    bool
	}

	var candidates []*returnCandidate
	for _, output := range tx.Essence.Outputs {
		basicOutput, ok := output.(*BasicOutput)
		if !ok {
			continue
		}
		// a plain value output, nothing but an address unlock condition
		if len(basicOutput.Conditions) != 1 || len(basicOutput.Features) != 0 || len(basicOutput.NativeTokens) != 0 {
			continue
		}
		addressCondition := basicOutput.Conditions.Address()
		if addressCondition == nil {
			continue
		}
		candidates = append(candidates, &returnCandidate{address: addressCondition.Address, amount: basicOutput.Amount})
	}

	for _, consumedOutput := range consumed {
		conditions := consumedOutput.Output.UnlockConditionSet()
		storageDepositReturn := conditions.StorageDepositReturn()
		if storageDepositReturn == nil {
			continue
		}

		if expiration := conditions.Expiration(); expiration != nil {
			if expiration.Expired(ctx.ConfirmingMilestoneIndex, ctx.ConfirmingMilestoneUnixTime) {
				// claimed by the return address, no deposit return required
				continue
			}
		}

		fulfilled := false
		for _, candidate := range candidates {
			if candidate.used || candidate.amount < storageDepositReturn.Amount {
				continue
			}
			if !addressesEqual(candidate.address, storageDepositReturn.ReturnAddress) {
				continue
			}
			candidate.used = true
			fulfilled = true

			break
		}
		if !fulfilled {
			return ErrReturnAmountNotFulFilled
		}
	}

	return nil
}

// validateChainTransitions validates every chain constrained output against its
// predecessor and returns the authorized native token deltas per foundry.
func (tx *Transaction) validateChainTransitions(inChains map[string]*chainContext, outChains map[string]*chainContext) (map[NativeTokenID]*big.Int, error) {
	mintedDeltas := make(map[NativeTokenID]*big.Int)

	for key, in := range inChains {
		out, transitions := outChains[key]
		if !transitions {
			// chain destruction, a foundry may not melt or mint on the way out
			continue
		}

		switch inOutput := in.output.(type) {
		case *AliasOutput:
			if err := validateAliasTransition(inOutput, out.output.(*AliasOutput)); err != nil {
				return nil, err
			}

		case *FoundryOutput:
			outFoundry := out.output.(*FoundryOutput)
			delta, err := validateFoundryTransition(inOutput, outFoundry)
			if err != nil {
				return nil, err
			}
			mintedDeltas[outFoundry.MustNativeTokenID()] = delta

		case *NFTOutput:
			outNFT, ok := out.output.(*NFTOutput)
			if !ok {
				return nil, errors.Wrapf(ErrChainTransitionInvalid, "NFT %s transitions to a non NFT output", in.chainID)
			}
			if !featuresEqual(inOutput.ImmutableFeatures, outNFT.ImmutableFeatures) {
				return nil, errors.Wrapf(ErrChainTransitionInvalid, "NFT %s changes its immutable features", in.chainID)
			}
		}
	}

	// genesis foundries, authorized by the foundry counter of their transitioning alias
	newFoundrySerials := make(map[AliasID][]uint32)
	for key, out := range outChains {
		if _, transitions := inChains[key]; transitions {
			continue
		}

		outFoundry, ok := out.output.(*FoundryOutput)
		if !ok {
			// aliases and NFTs enter with a zeroed ID, a foreign non zero ID has no predecessor
			return nil, errors.Wrapf(ErrChainTransitionInvalid, "chain %s has no predecessor on the input side", out.chainID)
		}

		aliasID := outFoundry.Conditions.ImmutableAlias().Address.AliasID()
		newFoundrySerials[aliasID] = append(newFoundrySerials[aliasID], outFoundry.SerialNumber)

		scheme := outFoundry.TokenScheme.(*SimpleTokenScheme)
		if scheme.MintedTokens.Cmp(scheme.MaximumSupply) > 0 ||
			scheme.CirculatingSupply().Cmp(scheme.MaximumSupply) > 0 {
			return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry %s mints beyond its maximum supply", outFoundry.MustNativeTokenID())
		}
		mintedDeltas[outFoundry.MustNativeTokenID()] = scheme.CirculatingSupply()
	}

	for aliasID, serials := range newFoundrySerials {
		in, consumed := inChains[aliasID.Key()]
		if !consumed {
			return nil, errors.Wrapf(ErrChainTransitionInvalid, "new foundries of alias %s require the alias to transition", aliasID)
		}
		out, transitions := outChains[aliasID.Key()]
		if !transitions {
			return nil, errors.Wrapf(ErrChainTransitionInvalid, "new foundries of alias %s require the alias to transition", aliasID)
		}

		inAlias := in.output.(*AliasOutput)
		outAlias := out.output.(*AliasOutput)

		counterDelta := outAlias.FoundryCounter - inAlias.FoundryCounter
		if int(counterDelta) != len(serials) {
			return nil, errors.Wrapf(ErrChainTransitionInvalid, "alias %s foundry counter delta %d does not match %d new foundries", aliasID, counterDelta, len(serials))
		}

		// the serials were collected in map order, the claimed interval itself is ordered
		sort.Slice(serials, func(i, j int) bool { return serials[i] < serials[j] })

		// serials are claimed in ascending order from the interval left open by the counter
		for i, serial := range serials {
			if serial != inAlias.FoundryCounter+uint32(i)+1 {
				return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry of alias %s claims serial %d out of order", aliasID, serial)
			}
		}
	}

	return mintedDeltas, nil
}

func validateAliasTransition(in *AliasOutput, out *AliasOutput) error {
	if !featuresEqual(in.ImmutableFeatures, out.ImmutableFeatures) {
		return errors.Wrapf(ErrChainTransitionInvalid, "alias %s changes its immutable features", in.AliasID)
	}

	switch out.StateIndex {
	case in.StateIndex + 1:
		// state transition, the governance parameters are frozen
		if !unlockConditionsEqual(in.Conditions, out.Conditions) {
			return errors.Wrapf(ErrChainTransitionInvalid, "alias %s state transition changes its unlock conditions", in.AliasID)
		}
		if out.FoundryCounter < in.FoundryCounter {
			return errors.Wrapf(ErrChainTransitionInvalid, "alias %s foundry counter decreases from %d to %d", in.AliasID, in.FoundryCounter, out.FoundryCounter)
		}

		return nil

	case in.StateIndex:
		// governance transition, the state is frozen
		if out.Amount != in.Amount ||
			out.FoundryCounter != in.FoundryCounter ||
			!bytes.Equal(out.StateMetadata, in.StateMetadata) ||
			!nativeTokensEqual(in.NativeTokens, out.NativeTokens) {
			return errors.Wrapf(ErrChainTransitionInvalid, "alias %s governance transition changes its state", in.AliasID)
		}

		return nil

	default:
		return errors.Wrapf(ErrChainTransitionInvalid, "alias %s state index changes from %d to %d", in.AliasID, in.StateIndex, out.StateIndex)
	}
}

func validateFoundryTransition(in *FoundryOutput, out *FoundryOutput) (*big.Int, error) {
	foundryID := in.ID()

	if !featuresEqual(in.ImmutableFeatures, out.ImmutableFeatures) {
		return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry %s changes its immutable features", foundryID)
	}

	inScheme := in.TokenScheme.(*SimpleTokenScheme)
	outScheme := out.TokenScheme.(*SimpleTokenScheme)

	if inScheme.MaximumSupply.Cmp(outScheme.MaximumSupply) != 0 {
		return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry %s changes its maximum supply", foundryID)
	}
	if outScheme.MintedTokens.Cmp(outScheme.MaximumSupply) > 0 ||
		outScheme.CirculatingSupply().Cmp(outScheme.MaximumSupply) > 0 {
		return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry %s mints beyond its maximum supply", foundryID)
	}

	mintedDelta := new(big.Int).Sub(outScheme.MintedTokens, inScheme.MintedTokens)
	meltedDelta := new(big.Int).Sub(outScheme.MeltedTokens, inScheme.MeltedTokens)

	if mintedDelta.Sign() < 0 {
		return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry %s decreases its minted supply", foundryID)
	}
	if meltedDelta.Sign() < 0 {
		return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry %s decreases its melted supply", foundryID)
	}
	if mintedDelta.Sign() > 0 && meltedDelta.Sign() > 0 {
		return nil, errors.Wrapf(ErrChainTransitionInvalid, "foundry %s mints and melts within the same transaction", foundryID)
	}

	return mintedDelta.Sub(mintedDelta, meltedDelta), nil
}

func nativeTokensEqual(a NativeTokens, b NativeTokens) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Amount.Cmp(b[i].Amount) != 0 {
			return false
		}
	}

	return true
}
