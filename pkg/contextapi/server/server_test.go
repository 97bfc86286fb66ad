package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/contextapi"
)

func TestServerSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Context Server Suite")
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

var _ = Describe("Server", func() {
	var (
		srv *Server
		ts  *httptest.Server
	)

	BeforeEach(func() {
		srv = New(testLogger(), contextapi.DefaultThresholds(), contextapi.NewDetector(nil),
			func(scope string) *contextapi.Catalog {
				return contextapi.NewCatalog(scope, contextapi.NewTokenizer("gpt-4", "cl100k_base"))
			}, contextapi.DefaultMaxInjectionTokens, 10000)
		ts = httptest.NewServer(srv)
	})

	AfterEach(func() {
		ts.Close()
	})

	It("should report healthy", func() {
		resp, err := http.Get(ts.URL + "/health")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should insert and then recall a memory item", func() {
		body, _ := json.Marshal(map[string]interface{}{
			"kind":    "decision",
			"summary": "chose approach A",
			"content": "we chose approach A because it scales better",
			"tags":    []string{"architecture"},
		})

		resp, err := http.Post(ts.URL+"/ci/apollo/memory/", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, err = http.Get(ts.URL + "/ci/apollo/memory/select?tag=architecture")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var packed []contextapi.PackedItem
		Expect(json.NewDecoder(resp.Body).Decode(&packed)).To(Succeed())
		Expect(packed).To(HaveLen(1))
	})

	It("should reject malformed insert bodies", func() {
		resp, err := http.Post(ts.URL+"/ci/apollo/memory/", "application/json", bytes.NewReader([]byte("{")))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("should report budget status", func() {
		resp, err := http.Get(ts.URL + "/ci/apollo/budget/")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var budget contextapi.BudgetRecord
		Expect(json.NewDecoder(resp.Body).Decode(&budget)).To(Succeed())
		Expect(budget.CIName).To(Equal("apollo"))
	})

	It("should sunset a CI whose output matches the detector and reject further turns", func() {
		body, _ := json.Marshal(map[string]interface{}{
			"model":    "gpt-4",
			"consumed": 10,
			"dropped":  0,
			"output":   "SUNSET_PROTOCOL engaged, going to sleep",
		})
		resp, err := http.Post(ts.URL+"/ci/apollo/budget/turn", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var budget contextapi.BudgetRecord
		Expect(json.NewDecoder(resp.Body).Decode(&budget)).To(Succeed())
		Expect(budget.SunsetState).To(Equal(contextapi.StateSunset))

		resp, err = http.Post(ts.URL+"/ci/apollo/budget/turn", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})

	It("should sunrise a sunset CI and return its delta", func() {
		sunsetBody, _ := json.Marshal(map[string]interface{}{
			"model":    "gpt-4",
			"consumed": 10,
			"output":   "SUNSET_PROTOCOL",
		})
		resp, err := http.Post(ts.URL+"/ci/apollo/budget/turn", "application/json", bytes.NewReader(sunsetBody))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, err = http.Post(ts.URL+"/ci/apollo/budget/sunrise", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result map[string]interface{}
		Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
		Expect(result["delta"]).NotTo(BeEmpty())
	})
})
