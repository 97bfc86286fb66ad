package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/registry"
)

func TestServerSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Registry Server Suite")
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

var _ = Describe("Server", func() {
	var (
		reg *registry.Registry
		srv *Server
		ts  *httptest.Server
	)

	BeforeEach(func() {
		reg = registry.New(testLogger())
		srv = New(reg, testLogger())
		ts = httptest.NewServer(srv)
	})

	AfterEach(func() {
		ts.Close()
	})

	It("should report healthy", func() {
		resp, err := http.Get(ts.URL + "/health")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should register a component", func() {
		body, _ := json.Marshal(registry.Component{ID: "apollo", InstanceUUID: "uuid-1", Type: "Registry"})
		resp, err := http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var component registry.Component
		json.NewDecoder(resp.Body).Decode(&component)
		Expect(component.State).To(Equal(registry.StateRegistering))
	})

	It("should reject a malformed registration body", func() {
		resp, err := http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader([]byte("not json")))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("should heartbeat, get and list a registered component", func() {
		body, _ := json.Marshal(registry.Component{ID: "apollo", InstanceUUID: "uuid-1"})
		http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader(body))

		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/registry/components/apollo/heartbeat?instance_uuid=uuid-1", nil)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		resp, err = http.Get(ts.URL + "/registry/components/apollo")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, err = http.Get(ts.URL + "/registry/components")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		var components []registry.Component
		json.NewDecoder(resp.Body).Decode(&components)
		Expect(components).To(HaveLen(1))
	})

	It("should return not found for an unknown component", func() {
		resp, err := http.Get(ts.URL + "/registry/components/ghost")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should unregister a component", func() {
		body, _ := json.Marshal(registry.Component{ID: "apollo", InstanceUUID: "uuid-1"})
		http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader(body))

		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/registry/components/apollo?instance_uuid=uuid-1", nil)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
	})

	It("should reject a stale instance_uuid on unregister", func() {
		body, _ := json.Marshal(registry.Component{ID: "apollo", InstanceUUID: "uuid-1"})
		http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader(body))

		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/registry/components/apollo?instance_uuid=uuid-stale", nil)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusGone))
	})

	It("should reject registration when a live instance already holds the id", func() {
		body, _ := json.Marshal(registry.Component{ID: "apollo", InstanceUUID: "uuid-1"})
		http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader(body))

		body, _ = json.Marshal(registry.Component{ID: "apollo", InstanceUUID: "uuid-2"})
		resp, err := http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))
	})

	It("should resolve a ready capability provider", func() {
		body, _ := json.Marshal(registry.Component{
			ID:           "apollo",
			InstanceUUID: "uuid-1",
			Capabilities: []registry.Capability{{Name: "summarize"}},
		})
		http.Post(ts.URL+"/registry/components", "application/json", bytes.NewReader(body))
		reg.SetState(context.Background(), "apollo", registry.StateInitializing)
		reg.SetState(context.Background(), "apollo", registry.StateReady)

		resp, err := http.Get(ts.URL + "/registry/resolve/summarize")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should return no-fallback-available when nothing resolves", func() {
		resp, err := http.Get(ts.URL + "/registry/resolve/nonexistent")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})

	It("should register a fallback binding", func() {
		body, _ := json.Marshal(registry.FallbackBinding{Capability: "summarize", PrimaryID: "a", FallbackID: "b"})
		resp, err := http.Post(ts.URL+"/registry/fallbacks", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	})
})
