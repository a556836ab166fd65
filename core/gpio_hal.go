package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// PinUndef marks a logical pin with no hardware pin behind it
const PinUndef GPIOPin = 0xFFFFFFFF

// PinTranslator maps the 8-bit logical pin numbers used on the wire to
// hardware pins. ok is false when the logical pin is not routed.
type PinTranslator interface {
	Translate(logical uint8) (pin GPIOPin, ok bool)
}

// PinTable is a PinTranslator backed by a slice: index is the logical pin.
// Entries set to PinUndef are not routed.
type PinTable []GPIOPin

// Translate implements PinTranslator
func (t PinTable) Translate(logical uint8) (GPIOPin, bool) {
	if int(logical) >= len(t) {
		return PinUndef, false
	}
	pin := t[logical]
	if pin == PinUndef {
		return PinUndef, false
	}
	return pin, true
}

// IdentityPins routes every logical pin to the hardware pin of the same number
type IdentityPins struct{}

// Translate implements PinTranslator
func (IdentityPins) Translate(logical uint8) (GPIOPin, bool) {
	return GPIOPin(logical), true
}

// Global pin map used by modules registered through Init* helpers.
var pinMap PinTranslator

// SetPinMap is called by target-specific code to register its pin table.
func SetPinMap(p PinTranslator) {
	pinMap = p
}

// MustPins returns the configured pin map or panics if missing.
func MustPins() PinTranslator {
	if pinMap == nil {
		panic("pin map not configured")
	}
	return pinMap
}
