package timing

import (
	"math"
	"strconv"
)

// VTimeInSec defines the time in the simulated space in the unit of second.
type VTimeInSec float64

// Infinity is the time of an event that will never happen. It never compares
// less than any finite time.
var Infinity = VTimeInSec(math.Inf(1))

// Zero is the time at which every simulation starts.
const Zero VTimeInSec = 0

// IsInfinite tells if the time can never be reached.
func (t VTimeInSec) IsInfinite() bool {
	return math.IsInf(float64(t), 1)
}

// Plus returns t + d.
func (t VTimeInSec) Plus(d VTimeInSec) VTimeInSec {
	return t + d
}

// Minus returns t - d.
func (t VTimeInSec) Minus(d VTimeInSec) VTimeInSec {
	return t - d
}

// Times scales the time by a factor.
func (t VTimeInSec) Times(factor float64) VTimeInSec {
	return VTimeInSec(float64(t) * factor)
}

// Before tells if t happens strictly earlier than other.
func (t VTimeInSec) Before(other VTimeInSec) bool {
	return t < other
}

func (t VTimeInSec) String() string {
	if t.IsInfinite() {
		return "inf"
	}

	return strconv.FormatFloat(float64(t), 'f', 10, 64)
}

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Time() VTimeInSec
}
