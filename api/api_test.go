package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/logger"
	"github.com/papercomputeco/overlap/pkg/scoring"
	testutils "github.com/papercomputeco/overlap/pkg/utils/test"
)

func jsonRequest(method, path string, body any) *http.Request {
	b, err := json.Marshal(body)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	req, err := http.NewRequest(method, path, bytes.NewReader(b))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func uploadRequest(filename string, content []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	ExpectWithOffset(1, w.Close()).To(Succeed())

	req, err := http.NewRequest(http.MethodPost, "/api/extract-text", &buf)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	body, err := io.ReadAll(resp.Body)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	ExpectWithOffset(1, json.Unmarshal(body, &out)).To(Succeed(), string(body))
	return out
}

var _ = Describe("Server", func() {
	var (
		server   *Server
		embedder *testutils.MockEmbedder
		timeout  time.Duration
	)

	newServer := func() *Server {
		pipeline := testutils.NewTestPipeline(embedder, testutils.NewTestCorpus(
			"alpha-doc", "alpha",
			"beta-doc", "beta",
			"gamma-doc", "gamma",
		), func(c *scoring.Config) { c.Timeout = timeout })

		s, err := NewServer(Config{
			ListenAddr:  ":0",
			CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			Device:      "cpu",
		}, pipeline, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		timeout = 0
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings = map[string][]float32{
			"alpha": {1, 0},
			"beta":  {0, 1},
			"gamma": {1, 1},
			"query": {1, 0},
		}
		server = newServer()
	})

	Describe("NewServer", func() {
		It("requires a scorer", func() {
			_, err := NewServer(Config{}, nil, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("scorer is required")))
		})

		It("requires a logger", func() {
			_, err := NewServer(Config{}, &scoring.Pipeline{}, nil)
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("defaults the body limit", func() {
			Expect(server.config.BodyLimit).To(Equal(DefaultBodyLimit))
		})
	})

	Describe("GET /", func() {
		It("reports status and device", func() {
			resp, err := server.app.Test(httptestRequest(http.MethodGet, "/"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			status := decode[StatusResponse](resp)
			Expect(status.Status).To(Equal("Backend is running"))
			Expect(status.Device).To(Equal("cpu"))
		})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := server.app.Test(httptestRequest(http.MethodGet, "/ping"))
			Expect(err).NotTo(HaveOccurred())
			Expect(decode[string](resp)).To(Equal("pong"))
		})
	})

	Describe("POST /api/compare-text", func() {
		It("returns the similarity percentage", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/compare-text",
				CompareRequest{Text1: "alpha", Text2: "gamma"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			res := decode[scoring.CompareResult](resp)
			Expect(res.Similarity).To(BeNumerically("~", 70.71, 0.01))
		})

		It("rejects blank texts without calling the provider", func() {
			calls := embedder.Calls()

			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/compare-text",
				CompareRequest{Text1: "alpha", Text2: "   "}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(decode[ErrorResponse](resp).Error).To(ContainSubstring("text must not be empty"))
			Expect(embedder.Calls()).To(Equal(calls))
		})

		It("rejects malformed bodies", func() {
			req := httptestRequest(http.MethodPost, "/api/compare-text")
			req.Body = io.NopCloser(strings.NewReader("{not json"))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(decode[ErrorResponse](resp).Error).To(Equal("invalid request body"))
		})

		It("surfaces provider failures as 500", func() {
			embedder.Err = errors.New("model unavailable")

			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/compare-text",
				CompareRequest{Text1: "alpha", Text2: "beta"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
			Expect(decode[ErrorResponse](resp).Error).To(ContainSubstring("model unavailable"))
		})

		It("surfaces provider timeouts as 504", func() {
			timeout = 20 * time.Millisecond
			server = newServer()
			embedder.Delay = time.Second

			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/compare-text",
				CompareRequest{Text1: "alpha", Text2: "beta"}), 5000)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusGatewayTimeout))
			Expect(decode[ErrorResponse](resp).Error).To(ContainSubstring("timed out"))
		})
	})

	Describe("POST /api/check-text", func() {
		It("returns ranked matches and their average", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/check-text",
				CheckRequest{Text: "query"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			res := decode[scoring.CheckResult](resp)
			Expect(res.Results).To(HaveLen(3))
			Expect(res.Results[0].DocumentName).To(Equal("alpha-doc"))
			Expect(res.Results[0].Similarity).To(BeNumerically("~", 100, 0.001))
			Expect(res.Results[0].PreviewText).To(Equal("alpha..."))
			Expect(res.Results[1].DocumentName).To(Equal("gamma-doc"))
			Expect(res.Results[2].DocumentName).To(Equal("beta-doc"))
			Expect(res.AverageScore).To(BeNumerically("~", (100+70.7107)/3, 0.01))
		})

		It("uses snake_case keys", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/check-text",
				CheckRequest{Text: "query"}))
			Expect(err).NotTo(HaveOccurred())

			raw := decode[map[string]any](resp)
			Expect(raw).To(HaveKey("average_score"))
			Expect(raw).To(HaveKey("results"))
			first := raw["results"].([]any)[0].(map[string]any)
			Expect(first).To(HaveKey("document_name"))
			Expect(first).To(HaveKey("similarity"))
			Expect(first).To(HaveKey("preview_text"))
		})

		It("rejects blank text", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/check-text",
				CheckRequest{Text: "\n\t"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("POST /api/extract-text", func() {
		It("returns the text of a .txt upload", func() {
			resp, err := server.app.Test(uploadRequest("essay.TXT", []byte("line one\nline two")))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			res := decode[ExtractResponse](resp)
			Expect(res.Filename).To(Equal("essay.TXT"))
			Expect(res.Text).To(Equal("line one\nline two"))
		})

		It("rejects unsupported file types with 400", func() {
			resp, err := server.app.Test(uploadRequest("essay.pdf", []byte("%PDF-1.4")))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(decode[ErrorResponse](resp).Error).To(Equal("Unsupported file type. Please upload .txt or .docx"))
		})

		It("reports undecodable files with 500", func() {
			resp, err := server.app.Test(uploadRequest("essay.docx", []byte("not a zip archive")))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
			Expect(decode[ErrorResponse](resp).Error).To(ContainSubstring("failed to extract text"))
		})

		It("requires the file field", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/api/extract-text", map[string]string{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(decode[ErrorResponse](resp).Error).To(Equal("file is required"))
		})
	})

	Describe("middleware", func() {
		It("assigns a request id", func() {
			resp, err := server.app.Test(httptestRequest(http.MethodGet, "/ping"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get(fiber.HeaderXRequestID)).To(HaveLen(36))
		})

		It("keeps a caller supplied request id", func() {
			req := httptestRequest(http.MethodGet, "/ping")
			req.Header.Set(fiber.HeaderXRequestID, "abc-123")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get(fiber.HeaderXRequestID)).To(Equal("abc-123"))
		})

		It("answers CORS preflight for allowed origins", func() {
			req := httptestRequest(http.MethodOptions, "/api/check-text")
			req.Header.Set(fiber.HeaderOrigin, "http://localhost:3000")
			req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))
			Expect(resp.Header.Get(fiber.HeaderAccessControlAllowOrigin)).To(Equal("http://localhost:3000"))
			Expect(resp.Header.Get(fiber.HeaderAccessControlAllowCredentials)).To(Equal("true"))
		})

		It("does not allow other origins", func() {
			req := httptestRequest(http.MethodOptions, "/api/check-text")
			req.Header.Set(fiber.HeaderOrigin, "http://evil.example")
			req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get(fiber.HeaderAccessControlAllowOrigin)).To(BeEmpty())
		})

		It("renders unknown routes as JSON errors", func() {
			resp, err := server.app.Test(httptestRequest(http.MethodGet, "/nope"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
			Expect(decode[ErrorResponse](resp).Error).NotTo(BeEmpty())
		})
	})

	Describe("/mcp", func() {
		It("serves the MCP initialize handshake", func() {
			body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"0.0.1"}}}`
			req := httptestRequest(http.MethodPost, "/mcp")
			req.Body = io.NopCloser(strings.NewReader(body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			req.Header.Set(fiber.HeaderAccept, "application/json, text/event-stream")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			out, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(ContainSubstring(`"overlap"`))
		})
	})
})

var _ = Describe("corsConfig", func() {
	It("drops credentials for wildcard origins", func() {
		c := corsConfig([]string{"*"})
		Expect(c.AllowOrigins).To(Equal("*"))
		Expect(c.AllowCredentials).To(BeFalse())
	})

	It("joins explicit origins", func() {
		c := corsConfig([]string{"http://a", "http://b"})
		Expect(c.AllowOrigins).To(Equal("http://a,http://b"))
		Expect(c.AllowCredentials).To(BeTrue())
	})
})

var _ = DescribeTable("errorStatus",
	func(err error, code int) {
		status, _ := errorStatus(err)
		Expect(status).To(Equal(code))
	},
	Entry("empty input", scoring.ErrEmptyInput, fiber.StatusBadRequest),
	Entry("provider failure", scoring.ErrProviderFailure, fiber.StatusInternalServerError),
	Entry("provider timeout", scoring.ErrProviderTimeout, fiber.StatusGatewayTimeout),
	Entry("anything else", errors.New("boom"), fiber.StatusInternalServerError),
)

func httptestRequest(method, path string) *http.Request {
	req, err := http.NewRequest(method, path, nil)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return req
}
