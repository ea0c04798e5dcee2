package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("returns the function's error and prints a final line", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			err := cliui.Step(&buf, "Building index", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("Building index"))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})

		It("succeeds when the function does", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "Loading", func() error { return nil })).To(Succeed())
		})
	})

	Describe("FormatDuration", func() {
		It("uses milliseconds below a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("FormatPercent", func() {
		It("keeps two decimals", func() {
			Expect(cliui.FormatPercent(87.456)).To(Equal("87.46%"))
			Expect(cliui.FormatPercent(0)).To(Equal("0.00%"))
		})
	})

	Describe("ScoreStyle", func() {
		It("buckets by threshold", func() {
			Expect(cliui.ScoreStyle(95).GetBold()).To(BeTrue())
			Expect(cliui.ScoreStyle(60).GetBold()).To(BeFalse())
			Expect(cliui.ScoreStyle(10).GetBold()).To(BeFalse())
		})
	})

	Describe("Table", func() {
		It("renders headers and cells", func() {
			out := cliui.Table(
				[]string{"Document", "Similarity"},
				[][]string{{"essay_1", "91.00%"}, {"essay_2", "12.50%"}},
				nil,
			)
			Expect(out).To(ContainSubstring("Document"))
			Expect(out).To(ContainSubstring("essay_1"))
			Expect(out).To(ContainSubstring("12.50%"))
		})
	})

	Describe("Mark", func() {
		It("distinguishes success and failure", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
			Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
		})
	})
})
