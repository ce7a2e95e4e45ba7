package block

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"

	"github.com/iotaledger/hive.go/marshalutil"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// MilestoneID is the BLAKE2b-256 hash of a serialized milestone essence.
type MilestoneID [MilestoneIDLength]byte

func (milestoneID MilestoneID) String() string {
	return hex.EncodeToString(milestoneID[:])
}

// MilestonePublicKey is the public key of a milestone signer.
type MilestonePublicKey [Ed25519PublicKeyLength]byte

// MilestonePublicKeyMapping maps a public key to its private key.
type MilestonePublicKeyMapping map[MilestonePublicKey]ed25519.PrivateKey

// MilestonePayload is a signed checkpoint which anchors the confirmed state of the Tangle.
type MilestonePayload struct {
	// Index is the sequence number of the milestone.
	Index milestone.Index
	// Timestamp is the unix timestamp at which the milestone was issued.
	Timestamp uint32
	// PreviousMilestoneID is the ID of the preceding milestone.
	PreviousMilestoneID MilestoneID
	// Parents are the blocks this milestone directly references.
	Parents BlockIDs
	// InclusionMerkleRoot is the merkle root over all blocks referenced by this milestone.
	InclusionMerkleRoot [blake2b.Size256]byte
	// AppliedMerkleRoot is the merkle root over all blocks which mutate the ledger.
	AppliedMerkleRoot [blake2b.Size256]byte
	// Metadata is opaque binary data carried by the milestone.
	Metadata []byte
	// Signatures sign the BLAKE2b-256 digest of the essence.
	Signatures []*Ed25519Signature
}

func (m *MilestonePayload) PayloadType() PayloadType {
	return PayloadMilestone
}

func (m *MilestonePayload) serializeEssence(mu *marshalutil.MarshalUtil) {
	mu.WriteUint32(uint32(m.Index))
	mu.WriteUint32(m.Timestamp)
	mu.WriteBytes(m.PreviousMilestoneID[:])
	mu.WriteByte(byte(len(m.Parents)))
	for _, parent := range m.Parents {
		mu.WriteBytes(parent[:])
	}
	mu.WriteBytes(m.InclusionMerkleRoot[:])
	mu.WriteBytes(m.AppliedMerkleRoot[:])
	mu.WriteUint16(uint16(len(m.Metadata)))
	mu.WriteBytes(m.Metadata)
}

func (m *MilestonePayload) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteUint32(uint32(PayloadMilestone))
	m.serializeEssence(mu)
	mu.WriteByte(byte(len(m.Signatures)))
	for _, signature := range m.Signatures {
		signature.serialize(mu)
	}
}

// Essence returns the serialized essence of the milestone, the signed part of the payload.
func (m *MilestonePayload) Essence() []byte {
	mu := marshalutil.New()
	m.serializeEssence(mu)

	return mu.Bytes()
}

// SigningMessage returns the BLAKE2b-256 digest of the essence which is signed by the signers.
func (m *MilestonePayload) SigningMessage() []byte {
	essenceHash := blake2b.Sum256(m.Essence())

	return essenceHash[:]
}

// ID returns the BLAKE2b-256 hash of the serialized essence.
func (m *MilestonePayload) ID() MilestoneID {
	return MilestoneID(blake2b.Sum256(m.Essence()))
}

func (m *MilestonePayload) syntacticallyValidate() error {
	if len(m.Parents) < MinParentsCount || len(m.Parents) > MaxParentsCount {
		return ErrInvalidParentsCount
	}
	if err := m.Parents.syntacticallyValidate(); err != nil {
		return err
	}
	if len(m.Metadata) > MaxMetadataLength {
		return ErrInvalidBytes
	}
	if len(m.Signatures) == 0 || len(m.Signatures) > MaxMilestoneSignaturesCount {
		return ErrMilestoneInvalidSignatureCount
	}

	for i := 1; i < len(m.Signatures); i++ {
		if bytes.Compare(m.Signatures[i-1].PublicKey[:], m.Signatures[i].PublicKey[:]) >= 0 {
			return ErrMilestoneSignaturesNotSorted
		}
	}

	return nil
}

// VerifySignatures checks that the milestone carries at least minSigThreshold
// valid signatures of the applicable public keys.
func (m *MilestonePayload) VerifySignatures(minSigThreshold int, applicablePubKeys map[MilestonePublicKey]struct{}) error {
	if len(m.Signatures) < minSigThreshold {
		return ErrMilestoneInvalidSignatureCount
	}

	signingMessage := m.SigningMessage()

	for _, signature := range m.Signatures {
		if _, applicable := applicablePubKeys[MilestonePublicKey(signature.PublicKey)]; !applicable {
			return ErrMilestoneNonApplicablePublicKey
		}

		if !ed25519.Verify(signature.PublicKey[:], signingMessage, signature.Signature[:]) {
			return ErrMilestoneSignatureInvalid
		}
	}

	return nil
}

// Sign adds signatures over the essence for all given key pairs, sorted by public key.
func (m *MilestonePayload) Sign(keyMapping MilestonePublicKeyMapping) {
	signingMessage := m.SigningMessage()

	pubKeys := make([]MilestonePublicKey, 0, len(keyMapping))
	for pubKey := range keyMapping {
		pubKeys = append(pubKeys, pubKey)
	}
	sortMilestonePublicKeys(pubKeys)

	m.Signatures = make([]*Ed25519Signature, 0, len(pubKeys))
	for _, pubKey := range pubKeys {
		signature := &Ed25519Signature{}
		copy(signature.PublicKey[:], pubKey[:])
		copy(signature.Signature[:], ed25519.Sign(keyMapping[pubKey], signingMessage))
		m.Signatures = append(m.Signatures, signature)
	}
}

func sortMilestonePublicKeys(pubKeys []MilestonePublicKey) {
	for i := 1; i < len(pubKeys); i++ {
		for j := i; j > 0 && bytes.Compare(pubKeys[j-1][:], pubKeys[j][:]) > 0; j-- {
			pubKeys[j-1], pubKeys[j] = pubKeys[j], pubKeys[j-1]
		}
	}
}

func milestonePayloadFromMarshalUtil(mu *marshalutil.MarshalUtil) (*MilestonePayload, error) {
	m := &MilestonePayload{}

	index, err := mu.ReadUint32()
	if err != nil {
		return nil, err
	}
	m.Index = milestone.Index(index)

	if m.Timestamp, err = mu.ReadUint32(); err != nil {
		return nil, err
	}

	previousMilestoneIDBytes, err := mu.ReadBytes(MilestoneIDLength)
	if err != nil {
		return nil, err
	}
	copy(m.PreviousMilestoneID[:], previousMilestoneIDBytes)

	parentsCount, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}
	m.Parents = make(BlockIDs, parentsCount)
	for i := range m.Parents {
		parentBytes, err := mu.ReadBytes(BlockIDLength)
		if err != nil {
			return nil, err
		}
		copy(m.Parents[i][:], parentBytes)
	}

	inclusionMerkleRootBytes, err := mu.ReadBytes(blake2b.Size256)
	if err != nil {
		return nil, err
	}
	copy(m.InclusionMerkleRoot[:], inclusionMerkleRootBytes)

	appliedMerkleRootBytes, err := mu.ReadBytes(blake2b.Size256)
	if err != nil {
		return nil, err
	}
	copy(m.AppliedMerkleRoot[:], appliedMerkleRootBytes)

	metadataLength, err := mu.ReadUint16()
	if err != nil {
		return nil, err
	}
	if m.Metadata, err = mu.ReadBytes(int(metadataLength)); err != nil {
		return nil, err
	}

	signaturesCount, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}
	m.Signatures = make([]*Ed25519Signature, signaturesCount)
	for i := range m.Signatures {
		if m.Signatures[i], err = Ed25519SignatureFromMarshalUtil(mu); err != nil {
			return nil, err
		}
	}

	if err := m.syntacticallyValidate(); err != nil {
		return nil, err
	}

	return m, nil
}
