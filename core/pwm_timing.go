package core

import "math"

// PeriodTicks splits one PWM period into the ticks spent high and low at
// duty steps out of res, for a counter clocked at clockHz. ok is false when
// the period is shorter than one tick or does not fit a 32-bit counter.
func PeriodTicks(periodNs uint64, clockHz uint32, duty, res uint16) (high, low uint32, ok bool) {
	if res == 0 {
		res = 1
	}
	ticks := periodNs * uint64(clockHz) / 1000000000
	if ticks == 0 || ticks > math.MaxUint32 {
		return 0, 0, false
	}
	h := ticks * uint64(min(duty, res)) / uint64(res)
	return uint32(h), uint32(ticks - h), true
}
