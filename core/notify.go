package core

// PinNotifier is any service that can deliver a presence PIN to the
// guardian of the day. Implementations must never log the PIN.
type PinNotifier interface {
	SendPin(guardianPhone, childName, pinCode string)
}
