package block

import (
	"github.com/iotaledger/hive.go/marshalutil"

	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// UnlockConditionType denotes the type of an unlock condition.
type UnlockConditionType byte

const (
	// UnlockConditionAddress denotes an AddressUnlockCondition.
	UnlockConditionAddress UnlockConditionType = 0
	// UnlockConditionStorageDepositReturn denotes a StorageDepositReturnUnlockCondition.
	UnlockConditionStorageDepositReturn UnlockConditionType = 1
	// UnlockConditionTimelock denotes a TimelockUnlockCondition.
	UnlockConditionTimelock UnlockConditionType = 2
	// UnlockConditionExpiration denotes an ExpirationUnlockCondition.
	UnlockConditionExpiration UnlockConditionType = 3
	// UnlockConditionStateControllerAddress denotes a StateControllerAddressUnlockCondition.
	UnlockConditionStateControllerAddress UnlockConditionType = 4
	// UnlockConditionGovernorAddress denotes a GovernorAddressUnlockCondition.
	UnlockConditionGovernorAddress UnlockConditionType = 5
	// UnlockConditionImmutableAlias denotes an ImmutableAliasUnlockCondition.
	UnlockConditionImmutableAlias UnlockConditionType = 6
)

// UnlockCondition is the interface for all unlock conditions.
type UnlockCondition interface {
	// Type returns the type of the unlock condition.
	Type() UnlockConditionType

	serialize(mu *marshalutil.MarshalUtil)
	equal(other UnlockCondition) bool
}

// AddressUnlockCondition binds the output to an address.
type AddressUnlockCondition struct {
	Address Address
}

func (c *AddressUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionAddress
}

func (c *AddressUnlockCondition) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockConditionAddress))
	c.Address.serialize(mu)
}

func (c *AddressUnlockCondition) equal(other UnlockCondition) bool {
	otherCond, ok := other.(*AddressUnlockCondition)

	return ok && addressesEqual(c.Address, otherCond.Address)
}

// StorageDepositReturnUnlockCondition obliges the consumer of the output to
// send back the return amount to the return address within the same transaction.
type StorageDepositReturnUnlockCondition struct {
	ReturnAddress Address
	Amount        uint64
}

func (c *StorageDepositReturnUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionStorageDepositReturn
}

func (c *StorageDepositReturnUnlockCondition) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockConditionStorageDepositReturn))
	c.ReturnAddress.serialize(mu)
	mu.WriteUint64(c.Amount)
}

func (c *StorageDepositReturnUnlockCondition) equal(other UnlockCondition) bool {
	otherCond, ok := other.(*StorageDepositReturnUnlockCondition)

	return ok && addressesEqual(c.ReturnAddress, otherCond.ReturnAddress) && c.Amount == otherCond.Amount
}

// TimelockUnlockCondition forbids consuming the output before
// the given milestone index or unix timestamp is reached.
type TimelockUnlockCondition struct {
	MilestoneIndex milestone.Index
	UnixTime       uint32
}

func (c *TimelockUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionTimelock
}

// Locked tells whether the timelock still forbids consumption at the
// given confirming milestone index and timestamp.
func (c *TimelockUnlockCondition) Locked(confirmingIndex milestone.Index, confirmingUnixTime uint32) bool {
	if c.MilestoneIndex > 0 && confirmingIndex < c.MilestoneIndex {
		return true
	}
	if c.UnixTime > 0 && confirmingUnixTime < c.UnixTime {
		return true
	}

	return false
}

func (c *TimelockUnlockCondition) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockConditionTimelock))
	mu.WriteUint32(uint32(c.MilestoneIndex))
	mu.WriteUint32(c.UnixTime)
}

func (c *TimelockUnlockCondition) equal(other UnlockCondition) bool {
	otherCond, ok := other.(*TimelockUnlockCondition)

	return ok && *c == *otherCond
}

// ExpirationUnlockCondition hands the output back to the return address
// once the given milestone index or unix timestamp is reached.
type ExpirationUnlockCondition struct {
	ReturnAddress  Address
	MilestoneIndex milestone.Index
	UnixTime       uint32
}

func (c *ExpirationUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionExpiration
}

// Expired tells whether the expiration has passed at the given
// confirming milestone index and timestamp.
func (c *ExpirationUnlockCondition) Expired(confirmingIndex milestone.Index, confirmingUnixTime uint32) bool {
	if c.MilestoneIndex > 0 && confirmingIndex < c.MilestoneIndex {
		return false
	}
	if c.UnixTime > 0 && confirmingUnixTime < c.UnixTime {
		return false
	}

	return true
}

func (c *ExpirationUnlockCondition) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockConditionExpiration))
	c.ReturnAddress.serialize(mu)
	mu.WriteUint32(uint32(c.MilestoneIndex))
	mu.WriteUint32(c.UnixTime)
}

func (c *ExpirationUnlockCondition) equal(other UnlockCondition) bool {
	otherCond, ok := other.(*ExpirationUnlockCondition)

	return ok && addressesEqual(c.ReturnAddress, otherCond.ReturnAddress) &&
		c.MilestoneIndex == otherCond.MilestoneIndex && c.UnixTime == otherCond.UnixTime
}

// StateControllerAddressUnlockCondition binds the state transitions of an alias output to an address.
type StateControllerAddressUnlockCondition struct {
	Address Address
}

func (c *StateControllerAddressUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionStateControllerAddress
}

func (c *StateControllerAddressUnlockCondition) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockConditionStateControllerAddress))
	c.Address.serialize(mu)
}

func (c *StateControllerAddressUnlockCondition) equal(other UnlockCondition) bool {
	otherCond, ok := other.(*StateControllerAddressUnlockCondition)

	return ok && addressesEqual(c.Address, otherCond.Address)
}

// GovernorAddressUnlockCondition binds the governance transitions of an alias output to an address.
type GovernorAddressUnlockCondition struct {
	Address Address
}

func (c *GovernorAddressUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionGovernorAddress
}

func (c *GovernorAddressUnlockCondition) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockConditionGovernorAddress))
	c.Address.serialize(mu)
}

func (c *GovernorAddressUnlockCondition) equal(other UnlockCondition) bool {
	otherCond, ok := other.(*GovernorAddressUnlockCondition)

	return ok && addressesEqual(c.Address, otherCond.Address)
}

// ImmutableAliasUnlockCondition binds a foundry output to the alias which controls it.
type ImmutableAliasUnlockCondition struct {
	Address *AliasAddress
}

func (c *ImmutableAliasUnlockCondition) Type() UnlockConditionType {
	return UnlockConditionImmutableAlias
}

func (c *ImmutableAliasUnlockCondition) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockConditionImmutableAlias))
	c.Address.serialize(mu)
}

func (c *ImmutableAliasUnlockCondition) equal(other UnlockCondition) bool {
	otherCond, ok := other.(*ImmutableAliasUnlockCondition)

	return ok && addressesEqual(c.Address, otherCond.Address)
}

// UnlockConditions is a set of unlock conditions, ordered by their type.
type UnlockConditions []UnlockCondition

// Address returns the AddressUnlockCondition if the set contains one.
func (conditions UnlockConditions) Address() *AddressUnlockCondition {
	for _, condition := range conditions {
		if cond, ok := condition.(*AddressUnlockCondition); ok {
			return cond
		}
	}

	return nil
}

// StorageDepositReturn returns the StorageDepositReturnUnlockCondition if the set contains one.
func (conditions UnlockConditions) StorageDepositReturn() *StorageDepositReturnUnlockCondition {
	for _, condition := range conditions {
		if cond, ok := condition.(*StorageDepositReturnUnlockCondition); ok {
			return cond
		}
	}

	return nil
}

// Timelock returns the TimelockUnlockCondition if the set contains one.
func (conditions UnlockConditions) Timelock() *TimelockUnlockCondition {
	for _, condition := range conditions {
		if cond, ok := condition.(*TimelockUnlockCondition); ok {
			return cond
		}
	}

	return nil
}

// Expiration returns the ExpirationUnlockCondition if the set contains one.
func (conditions UnlockConditions) Expiration() *ExpirationUnlockCondition {
	for _, condition := range conditions {
		if cond, ok := condition.(*ExpirationUnlockCondition); ok {
			return cond
		}
	}

	return nil
}

// StateControllerAddress returns the StateControllerAddressUnlockCondition if the set contains one.
func (conditions UnlockConditions) StateControllerAddress() *StateControllerAddressUnlockCondition {
	for _, condition := range conditions {
		if cond, ok := condition.(*StateControllerAddressUnlockCondition); ok {
			return cond
		}
	}

	return nil
}

// GovernorAddress returns the GovernorAddressUnlockCondition if the set contains one.
func (conditions UnlockConditions) GovernorAddress() *GovernorAddressUnlockCondition {
	for _, condition := range conditions {
		if cond, ok := condition.(*GovernorAddressUnlockCondition); ok {
			return cond
		}
	}

	return nil
}

// ImmutableAlias returns the ImmutableAliasUnlockCondition if the set contains one.
func (conditions UnlockConditions) ImmutableAlias() *ImmutableAliasUnlockCondition {
	for _, condition := range conditions {
		if cond, ok := condition.(*ImmutableAliasUnlockCondition); ok {
			return cond
		}
	}

	return nil
}

// syntacticallyValidate checks that the conditions are sorted by type, unique
// and of a type allowed for the given output type.
func (conditions UnlockConditions) syntacticallyValidate(allowed ...UnlockConditionType) error {
	allowedSet := make(map[UnlockConditionType]struct{}, len(allowed))
	for _, conditionType := range allowed {
		allowedSet[conditionType] = struct{}{}
	}

	for i, condition := range conditions {
		if _, ok := allowedSet[condition.Type()]; !ok {
			return ErrUnknownUnlockConditionType
		}

		if i == 0 {
			continue
		}

		if conditions[i-1].Type() >= condition.Type() {
			return ErrInvalidBytes
		}
	}

	return nil
}

func (conditions UnlockConditions) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(len(conditions)))
	for _, condition := range conditions {
		condition.serialize(mu)
	}
}

func unlockConditionsFromMarshalUtil(mu *marshalutil.MarshalUtil) (UnlockConditions, error) {
	count, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	conditions := make(UnlockConditions, count)
	for i := range conditions {
		if conditions[i], err = unlockConditionFromMarshalUtil(mu); err != nil {
			return nil, err
		}
	}

	return conditions, nil
}

func unlockConditionFromMarshalUtil(mu *marshalutil.MarshalUtil) (UnlockCondition, error) {
	conditionType, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	switch UnlockConditionType(conditionType) {
	case UnlockConditionAddress:
		address, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}

		return &AddressUnlockCondition{Address: address}, nil

	case UnlockConditionStorageDepositReturn:
		returnAddress, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}
		amount, err := mu.ReadUint64()
		if err != nil {
			return nil, err
		}

		return &StorageDepositReturnUnlockCondition{ReturnAddress: returnAddress, Amount: amount}, nil

	case UnlockConditionTimelock:
		msIndex, err := mu.ReadUint32()
		if err != nil {
			return nil, err
		}
		unixTime, err := mu.ReadUint32()
		if err != nil {
			return nil, err
		}

		return &TimelockUnlockCondition{MilestoneIndex: milestone.Index(msIndex), UnixTime: unixTime}, nil

	case UnlockConditionExpiration:
		returnAddress, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}
		msIndex, err := mu.ReadUint32()
		if err != nil {
			return nil, err
		}
		unixTime, err := mu.ReadUint32()
		if err != nil {
			return nil, err
		}

		return &ExpirationUnlockCondition{ReturnAddress: returnAddress, MilestoneIndex: milestone.Index(msIndex), UnixTime: unixTime}, nil

	case UnlockConditionStateControllerAddress:
		address, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}

		return &StateControllerAddressUnlockCondition{Address: address}, nil

	case UnlockConditionGovernorAddress:
		address, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}

		return &GovernorAddressUnlockCondition{Address: address}, nil

	case UnlockConditionImmutableAlias:
		address, err := AddressFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}
		aliasAddress, ok := address.(*AliasAddress)
		if !ok {
			return nil, ErrInvalidBytes
		}

		return &ImmutableAliasUnlockCondition{Address: aliasAddress}, nil

	default:
		return nil, ErrUnknownUnlockConditionType
	}
}

func unlockConditionsEqual(a UnlockConditions, b UnlockConditions) bool {
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
