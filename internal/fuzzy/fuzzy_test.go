package fuzzy

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Match", func() {
	It("matches everything with an empty pattern", func() {
		Expect(Match("firefox", "")).To(BeTrue())
		Expect(Match("", "")).To(BeTrue())
	})

	It("never matches an empty haystack", func() {
		Expect(Match("", "a")).To(BeFalse())
	})

	It("matches a bounded-window subsequence", func() {
		Expect(Match("helloworld", "hlo")).To(BeTrue())
		Expect(Match("helloworld", "hello")).To(BeTrue())
		Expect(Match("firefox;web;browser", "firefox")).To(BeTrue())
	})

	It("fails when the gap exceeds the window", func() {
		// six filler bytes put 'w' one past the window from 'h'
		Expect(Match("hxxxxxxwo", "hwo")).To(BeFalse())
		// five filler bytes keep it inside
		Expect(Match("hxxxxwo", "hwo")).To(BeTrue())
	})

	It("restarts from a later anchor when the first attempt fails", func() {
		Expect(Match("hxxxxxxxhwo", "hwo")).To(BeTrue())
	})

	It("requires pattern bytes in order", func() {
		Expect(Match("abc", "cba")).To(BeFalse())
		Expect(Match("abc", "ac")).To(BeTrue())
	})

	It("does not fold case", func() {
		Expect(Match("Firefox", "firefox")).To(BeFalse())
	})

	DescribeTable("does not match when the pattern is longer than the rest of the haystack",
		func(haystack, pattern string) {
			Expect(Match(haystack, pattern)).To(BeFalse())
		},
		Entry("single byte haystack", "a", "ab"),
		Entry("anchor at the end", "xxa", "ab"),
	)
})
