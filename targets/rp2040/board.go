//go:build rp2040

package main

import (
	"umdk/core"
)

// RP2040 GPIO n is wired to PWM slice (n>>1)&7, channel n&1. Each slice
// drives two outputs, A and B; the table uses the lower of the two GPIOs
// that can reach each output.
var pwmChannels = [][]core.GPIOPin{
	{0, 1},
	{2, 3},
	{4, 5},
	{6, 7},
	{8, 9},
	{10, 11},
	{12, 13},
	{14, 15},
}

// Logical pins are the GPIO numbers on the Pico header. GPIO23 and
// GPIO24 are board-internal and not routed.
var logicalPins = core.PinTable{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9,
	10, 11, 12, 13, 14, 15, 16, 17, 18, 19,
	20, 21, 22, core.PinUndef, core.PinUndef, 25, 26, 27, 28,
}
