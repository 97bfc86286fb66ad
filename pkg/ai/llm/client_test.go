package llm

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ckoons/tekton-core/internal/config"
)

func TestLLMClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LLM Client Suite")
}

var _ = Describe("NewClient", func() {
	var logger *logrus.Logger

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
	})

	DescribeTable("provider selection",
		func(cfg config.LLMConfig, expectErr bool, errSubstring string) {
			client, err := NewClient(context.Background(), cfg, logger)
			if expectErr {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring(errSubstring))
				Expect(client).To(BeNil())
				return
			}
			Expect(err).ToNot(HaveOccurred())
			Expect(client).ToNot(BeNil())
			var iface Client = client
			Expect(iface).ToNot(BeNil())
		},
		Entry("valid localai config",
			config.LLMConfig{Provider: "localai", Endpoint: "http://localhost:8080", Model: "test-model", Timeout: 30 * time.Second},
			false, "",
		),
		Entry("valid ollama config",
			config.LLMConfig{Provider: "ollama", Endpoint: "http://localhost:11434", Model: "llama3"},
			false, "",
		),
		Entry("valid ramalama config",
			config.LLMConfig{Provider: "ramalama", Endpoint: "http://localhost:8081", Model: "granite"},
			false, "",
		),
		Entry("openai without an API key",
			config.LLMConfig{Provider: "openai", Model: "gpt-4"},
			true, "API key",
		),
		Entry("anthropic without an API key",
			config.LLMConfig{Provider: "anthropic", Model: "some-model"},
			true, "API key",
		),
		Entry("valid bedrock config",
			config.LLMConfig{Provider: "bedrock", Model: "anthropic.claude-3-sonnet"},
			false, "",
		),
		Entry("unsupported provider",
			config.LLMConfig{Provider: "not-a-real-provider"},
			true, "unsupported provider: not-a-real-provider",
		),
	)

	It("exposes the configured endpoint and model", func() {
		client, err := NewClient(context.Background(), config.LLMConfig{
			Provider: "localai",
			Endpoint: "http://localhost:8080",
			Model:    "test-model",
		}, logger)
		Expect(err).ToNot(HaveOccurred())
		Expect(client.GetEndpoint()).To(Equal("http://localhost:8080"))
		Expect(client.GetModel()).To(Equal("test-model"))
	})

	It("defaults the OpenAI endpoint when an API key is present", func() {
		client, err := NewClient(context.Background(), config.LLMConfig{
			Provider: "openai",
			Model:    "gpt-4",
			APIKey:   "sk-test",
		}, logger)
		Expect(err).ToNot(HaveOccurred())
		Expect(client.GetEndpoint()).To(Equal("https://api.openai.com"))
	})

	It("defaults the Anthropic endpoint when an API key is present", func() {
		client, err := NewClient(context.Background(), config.LLMConfig{
			Provider: "anthropic",
			Model:    "some-model",
			APIKey:   "sk-ant-test",
		}, logger)
		Expect(err).ToNot(HaveOccurred())
		Expect(client.GetEndpoint()).To(Equal(anthropicDefaultEndpoint))
	})
})
