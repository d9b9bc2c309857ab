package timing

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("VTimeInSec", func() {
	It("should do arithmetic", func() {
		t := VTimeInSec(1.5)

		Expect(t.Plus(0.5)).To(Equal(VTimeInSec(2)))
		Expect(t.Minus(0.5)).To(Equal(VTimeInSec(1)))
		Expect(t.Times(2)).To(Equal(VTimeInSec(3)))
		Expect(t.Before(2)).To(BeTrue())
		Expect(t.Before(1.5)).To(BeFalse())
	})

	It("should never reach infinity", func() {
		Expect(Infinity.IsInfinite()).To(BeTrue())
		Expect(VTimeInSec(math.MaxFloat64).IsInfinite()).To(BeFalse())
		Expect(VTimeInSec(math.MaxFloat64).Before(Infinity)).To(BeTrue())
		Expect(Infinity.Before(Infinity)).To(BeFalse())
		Expect(Infinity.Plus(1)).To(Equal(Infinity))
	})

	It("should print with a fixed precision", func() {
		Expect(VTimeInSec(0.25).String()).To(Equal("0.2500000000"))
		Expect(Zero.String()).To(Equal("0.0000000000"))
		Expect(Infinity.String()).To(Equal("inf"))
	})
})
