package testutils

import (
	"github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/corpus"
)

// NewTestCorpus builds a corpus from name, text pairs and fails the current
// test on error.
func NewTestCorpus(pairs ...string) *corpus.Corpus {
	gomega.Expect(len(pairs)%2).To(gomega.Equal(0), "pairs must be name, text")

	entries := make([]corpus.Entry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		entries = append(entries, corpus.Entry{Name: pairs[i], Text: pairs[i+1]})
	}

	c, err := corpus.New(entries...)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return c
}
