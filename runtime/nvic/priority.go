package nvic

// Logical priorities grow with urgency: 1 is the least urgent interrupt
// priority and 1<<bits the most urgent. Priority 0 is thread mode.

// Logical2HW converts a logical priority in 1..1<<bits to the raw NVIC
// priority byte.
func Logical2HW(logical, bits uint8) uint8 {
	return uint8(((1 << bits) - uint(logical)) << (8 - bits))
}

// HW2Logical is the inverse of Logical2HW.
func HW2Logical(hw, bits uint8) uint8 {
	return uint8((1 << bits) - uint(hw>>(8-bits)))
}

// MaxLogical is the most urgent logical priority. BASEPRI cannot mask it, so
// critical sections at this ceiling use PRIMASK instead.
func MaxLogical(bits uint8) uint8 {
	return uint8(1 << bits)
}
