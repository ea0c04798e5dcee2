package corpus_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/corpus"
)

var _ = Describe("ReadCSV", func() {
	It("reads the header and rows", func() {
		table, err := corpus.ReadCSV(strings.NewReader("title,text\nA,alpha\nB,beta\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(table.Columns).To(Equal([]string{"title", "text"}))
		Expect(table.Rows).To(Equal([][]string{{"A", "alpha"}, {"B", "beta"}}))
	})

	It("handles quoted multi-line fields", func() {
		table, err := corpus.ReadCSV(strings.NewReader("title,text\nA,\"line one\nline two, with comma\"\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(table.Rows[0][1]).To(Equal("line one\nline two, with comma"))
	})

	It("pads short rows and drops extra fields", func() {
		table, err := corpus.ReadCSV(strings.NewReader("title,text\nonly-title\nA,b,c\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(table.Rows).To(Equal([][]string{{"only-title", ""}, {"A", "b"}}))
	})

	It("strips a UTF-8 byte order mark from the header", func() {
		table, err := corpus.ReadCSV(strings.NewReader("\ufefftext,title\nx,y\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(table.Columns[0]).To(Equal("text"))
	})

	It("fails on empty input", func() {
		_, err := corpus.ReadCSV(strings.NewReader(""))
		Expect(err).To(MatchError(ContainSubstring("empty CSV")))
	})
})

var _ = Describe("CSVFile", func() {
	It("reports a missing file as ErrSourceMissing", func() {
		src := corpus.NewCSVFile(filepath.Join(GinkgoT().TempDir(), "absent.csv"))
		_, err := src.Read(context.Background())
		Expect(err).To(MatchError(corpus.ErrSourceMissing))
	})

	It("names itself by the file's base name", func() {
		Expect(corpus.NewCSVFile("medium_articles_1.csv").Name()).To(Equal("medium_articles_1.csv"))
		Expect(corpus.NewCSVFile("data/corpora/medium_articles_1.csv").Name()).To(Equal("medium_articles_1.csv"))
	})

	It("reads a file from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "f.csv")
		Expect(os.WriteFile(path, []byte("text\nhello\n"), 0o600)).To(Succeed())

		table, err := corpus.NewCSVFile(path).Read(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(table.Rows).To(HaveLen(1))
	})
})
