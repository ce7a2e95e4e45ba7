package block

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidBytes is returned when the deserialization of an object fails.
	ErrInvalidBytes = errors.New("invalid bytes")
	// ErrUnknownPayloadType is returned when a payload carries an unknown type.
	ErrUnknownPayloadType = errors.New("unknown payload type")
	// ErrUnknownAddressType is returned when an address carries an unknown type.
	ErrUnknownAddressType = errors.New("unknown address type")
	// ErrUnknownOutputType is returned when an output carries an unknown type.
	ErrUnknownOutputType = errors.New("unknown output type")
	// ErrUnknownUnlockType is returned when an unlock carries an unknown type.
	ErrUnknownUnlockType = errors.New("unknown unlock type")
	// ErrUnknownUnlockConditionType is returned when an unlock condition carries an unknown type.
	ErrUnknownUnlockConditionType = errors.New("unknown unlock condition type")
	// ErrUnknownFeatureType is returned when a feature carries an unknown type.
	ErrUnknownFeatureType = errors.New("unknown feature type")
	// ErrUnknownTokenSchemeType is returned when a token scheme carries an unknown type.
	ErrUnknownTokenSchemeType = errors.New("unknown token scheme type")

	// ErrParentsNotSorted is returned when the parents of a block are not sorted in ascending lexical order.
	ErrParentsNotSorted = errors.New("parents not sorted in ascending order")
	// ErrParentsNotUnique is returned when the parents of a block contain duplicates.
	ErrParentsNotUnique = errors.New("parents not unique")
	// ErrInvalidParentsCount is returned when the amount of parents of a block is out of range.
	ErrInvalidParentsCount = errors.New("invalid parents count")

	// ErrMissingUTXO is returned when a transaction references an unknown output.
	ErrMissingUTXO = errors.New("missing utxo")
	// ErrInputUTXOAlreadySpent is returned when a transaction references an already spent output.
	ErrInputUTXOAlreadySpent = errors.New("input utxo already spent")
	// ErrInputOutputSumMismatch is returned when the sum of consumed and created amounts does not match.
	ErrInputOutputSumMismatch = errors.New("sum of consumed and created amounts does not match")
	// ErrInvalidInputsCommitment is returned when the inputs commitment within the transaction essence is invalid.
	ErrInvalidInputsCommitment = errors.New("invalid inputs commitment")
	// ErrEd25519SignatureInvalid is returned when an ed25519 signature does not verify.
	ErrEd25519SignatureInvalid = errors.New("ed25519 signature is invalid")
	// ErrEd25519PubKeyAndAddrMismatch is returned when an ed25519 public key does not correspond to the given address.
	ErrEd25519PubKeyAndAddrMismatch = errors.New("ed25519 public key and address do not correspond")
	// ErrInvalidInputUnlock is returned when an input cannot be unlocked by the given unlock.
	ErrInvalidInputUnlock = errors.New("invalid input unlock")
	// ErrTimelockNotExpired is returned when a timelocked output is consumed before the timelock expired.
	ErrTimelockNotExpired = errors.New("timelock not expired")
	// ErrReturnAmountNotFulFilled is returned when the return amount of a storage deposit return
	// unlock condition is not fulfilled on the output side.
	ErrReturnAmountNotFulFilled = errors.New("return amount not fulfilled")
	// ErrNativeTokenSumUnbalanced is returned when the native token sums between consumed
	// and created outputs are unbalanced and not covered by a transitioning foundry.
	ErrNativeTokenSumUnbalanced = errors.New("native token sums are unbalanced")
	// ErrMaxNativeTokensCountExceeded is returned when a transaction exceeds the native token count limit.
	ErrMaxNativeTokensCountExceeded = errors.New("max native tokens count exceeded")
	// ErrNativeTokenAmountInvalid is returned when a native token carries a zero or out of range amount.
	ErrNativeTokenAmountInvalid = errors.New("native token amount invalid")
	// ErrNativeTokensNotSorted is returned when native tokens are not sorted by their ID.
	ErrNativeTokensNotSorted = errors.New("native tokens not sorted")
	// ErrNativeTokensNotUnique is returned when native tokens contain duplicate IDs.
	ErrNativeTokensNotUnique = errors.New("native tokens not unique")
	// ErrSenderFeatureNotUnlocked is returned when an output contains a sender feature
	// with an ident which is not unlocked.
	ErrSenderFeatureNotUnlocked = errors.New("sender feature is not unlocked")
	// ErrIssuerFeatureNotUnlocked is returned when a chain genesis output contains an issuer feature
	// with an ident which is not unlocked.
	ErrIssuerFeatureNotUnlocked = errors.New("issuer feature is not unlocked")
	// ErrChainTransitionInvalid is returned when the transition of a chain constrained output is invalid.
	ErrChainTransitionInvalid = errors.New("invalid chain transition")
	// ErrNetworkIDMismatch is returned when the network ID within the transaction essence does not
	// match the network the node operates on.
	ErrNetworkIDMismatch = errors.New("network ID mismatch")

	// ErrMilestoneInvalidSignatureCount is returned when a milestone does not reach the signature threshold.
	ErrMilestoneInvalidSignatureCount = errors.New("invalid milestone signature count")
	// ErrMilestoneSignaturesNotSorted is returned when the signatures of a milestone are not sorted by public key.
	ErrMilestoneSignaturesNotSorted = errors.New("milestone signatures not sorted")
	// ErrMilestoneNonApplicablePublicKey is returned when a milestone signature public key
	// is not applicable for the milestone index.
	ErrMilestoneNonApplicablePublicKey = errors.New("non applicable milestone public key")
	// ErrMilestoneSignatureInvalid is returned when a milestone signature does not verify.
	ErrMilestoneSignatureInvalid = errors.New("invalid milestone signature")
)
