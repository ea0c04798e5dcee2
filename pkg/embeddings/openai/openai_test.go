package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/embeddings/openai"
	"github.com/papercomputeco/overlap/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server     *httptest.Server
		authHeader string
		lastBody   map[string]any
		reverse    bool
	)

	BeforeEach(func() {
		reverse = false
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			authHeader = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())

			input := lastBody["input"].([]any)
			data := make([]map[string]any, len(input))
			for i := range input {
				data[i] = map[string]any{"index": i, "embedding": []float32{float32(i + 1), 0}}
			}
			if reverse {
				for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
					data[i], data[j] = data[j], data[i]
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"data": data})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends model, input and bearer key", func() {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: server.URL + "/v1/",
			APIKey:  "sk-test",
			Model:   "text-embedding-3-small",
		})
		Expect(err).NotTo(HaveOccurred())

		vec, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{1, 0}))
		Expect(authHeader).To(Equal("Bearer sk-test"))
		Expect(lastBody["model"]).To(Equal("text-embedding-3-small"))
		Expect(lastBody).NotTo(HaveKey("dimensions"))
	})

	It("omits the Authorization header without a key", func() {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL + "/v1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(authHeader).To(BeEmpty())
	})

	It("forwards requested dimensions", func() {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL + "/v1", Dimensions: 256})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(lastBody["dimensions"]).To(BeNumerically("==", 256))
	})

	It("restores input order from the index field", func() {
		reverse = true
		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL + "/v1"})
		Expect(err).NotTo(HaveOccurred())

		vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs[0]).To(Equal([]float32{1, 0}))
		Expect(vecs[2]).To(Equal([]float32{3, 0}))
	})

	It("wraps error statuses in ErrEmbedding", func() {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
		}))
		defer failing.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: failing.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("invalid key"))
	})
})
