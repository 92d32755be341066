package priority

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Compute", func() {
	It("adds the band when the item was never used", func() {
		for _, d := range []int32{0, 1, 2, 5} {
			Expect(Compute(3, 0, d)).To(Equal(float32(3) + Band))
		}
	})

	It("is non-increasing in the usage count", func() {
		const decimals = 2
		prev := Compute(1, 0, decimals)
		for count := uint32(1); count < 100; count++ {
			cur := Compute(1, count, decimals)
			Expect(cur).To(BeNumerically("<=", prev))
			prev = cur
		}
	})

	It("keeps a used item inside its launcher band", func() {
		d := Decimals(42)
		Expect(Compute(1, 42, d)).To(BeNumerically(">", 1))
		Expect(Compute(1, 42, d)).To(BeNumerically("<", 2))
	})

	It("scales by the decimal precision", func() {
		Expect(Compute(0, 5, 1)).To(BeNumerically("~", 0.49, 1e-5))
		Expect(Compute(0, 5, 2)).To(BeNumerically("~", 0.94, 1e-5))
	})
})

var _ = Describe("Decimals", func() {
	DescribeTable("counts the digits of the largest value",
		func(max uint32, want int32) {
			Expect(Decimals(max)).To(Equal(want))
		},
		Entry("no usage", uint32(0), int32(0)),
		Entry("single digit", uint32(7), int32(1)),
		Entry("power of ten", uint32(10), int32(2)),
		Entry("three digits", uint32(999), int32(3)),
	)
})
