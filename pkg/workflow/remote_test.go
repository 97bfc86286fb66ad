package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ckoons/tekton-core/pkg/executor"
	"github.com/ckoons/tekton-core/pkg/registry"
	registryclient "github.com/ckoons/tekton-core/pkg/registry/client"
)

var _ = Describe("RemoteDispatch", func() {
	var (
		registryServer  *httptest.Server
		componentServer *httptest.Server
		handler         executor.Handler
	)

	BeforeEach(func() {
		componentServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var env map[string]interface{}
			Expect(json.NewDecoder(r.Body).Decode(&env)).To(Succeed())
			Expect(env["purpose"]).To(Equal("invoke"))

			reply, _ := json.Marshal(map[string]interface{}{
				"from": "aish",
				"to":   env["from"],
				"body": json.RawMessage(`{"result":"ok"}`),
			})
			w.Header().Set("Content-Type", "application/json")
			w.Write(reply)
		}))

		registryServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			component := registry.Component{ID: "aish-1", Type: "aish", Endpoint: componentServer.URL}
			json.NewEncoder(w).Encode(component)
		}))

		handler = RemoteDispatch(registryclient.New(registryServer.URL))
	})

	AfterEach(func() {
		componentServer.Close()
		registryServer.Close()
	})

	It("resolves the component and relays the task as an envelope", func() {
		out, err := handler(context.Background(), executor.TaskRequest{
			Verb:       "aish.invoke",
			Parameters: map[string]interface{}{"command": "status"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out["result"]).To(Equal("ok"))
	})

	It("rejects a verb with no action segment", func() {
		_, err := handler(context.Background(), executor.TaskRequest{Verb: "aish"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("malformed verb"))
	})
})
