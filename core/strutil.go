package core

// Utoa converts an unsigned integer to a string without the fmt package.
// Modules use it to build debug lines on targets where fmt is too heavy.
func Utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[pos:])
}
