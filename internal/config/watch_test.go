package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Watcher", func() {
	var (
		tempDir    string
		configFile string
		logger     *logrus.Logger
	)

	const baseConfig = `
registry:
  namespace: "tekton"
orchestration:
  max_concurrent_tasks: 5
`

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-watch-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(configFile, []byte(baseConfig), 0o644)).To(Succeed())

		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("picks up a valid edit without a restart", func() {
		initial, err := Load(configFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(initial.Orchestration.MaxConcurrentTasks).To(Equal(5))

		watcher, err := NewWatcher(configFile, initial, logger)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)

		updated := `
registry:
  namespace: "tekton"
orchestration:
  max_concurrent_tasks: 9
`
		Expect(os.WriteFile(configFile, []byte(updated), 0o644)).To(Succeed())

		Eventually(func() int {
			return watcher.Current().Orchestration.MaxConcurrentTasks
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(9))
	})

	It("retains the previous configuration when a reload fails validation", func() {
		initial, err := Load(configFile)
		Expect(err).NotTo(HaveOccurred())

		watcher, err := NewWatcher(configFile, initial, logger)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)

		broken := `
registry:
  namespace: ""
orchestration:
  max_concurrent_tasks: 5
`
		Expect(os.WriteFile(configFile, []byte(broken), 0o644)).To(Succeed())

		Consistently(func() string {
			return watcher.Current().Registry.Namespace
		}, 300*time.Millisecond, 10*time.Millisecond).Should(Equal("tekton"))
	})
})
