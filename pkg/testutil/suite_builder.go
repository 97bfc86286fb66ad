package testutil

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/datastorage"
	"github.com/ckoons/tekton-core/pkg/workflow"
)

// SuiteBuilder provides a fluent interface for assembling the common
// components a Ginkgo suite needs, registering its own BeforeEach/AfterEach.
type SuiteBuilder struct {
	withLogger    bool
	withStore     bool
	withDatastore bool
	logLevel      logrus.Level
	customSetup   []func() error
	customCleanup []func() error
}

// Components holds what Build assembled for a suite, populated afresh in
// every BeforeEach.
type Components struct {
	Context     context.Context
	Logger      *logrus.Logger
	Store       *workflow.Store
	Datastorage datastorage.Client
}

// NewSuiteBuilder builds a SuiteBuilder with a logger by default
// (suppressed to FatalLevel so suite output stays quiet).
func NewSuiteBuilder() *SuiteBuilder {
	return &SuiteBuilder{
		withLogger: true,
		logLevel:   logrus.FatalLevel,
	}
}

// WithStore enables an in-memory workflow.Store per test.
func (b *SuiteBuilder) WithStore() *SuiteBuilder {
	b.withStore = true
	return b
}

// WithDatastorage enables a fake datastorage.Client per test.
func (b *SuiteBuilder) WithDatastorage() *SuiteBuilder {
	b.withDatastore = true
	return b
}

// WithLogLevel overrides the suite logger's level.
func (b *SuiteBuilder) WithLogLevel(level logrus.Level) *SuiteBuilder {
	b.logLevel = level
	return b
}

// WithCustomSetup registers an additional BeforeEach step.
func (b *SuiteBuilder) WithCustomSetup(setup func() error) *SuiteBuilder {
	b.customSetup = append(b.customSetup, setup)
	return b
}

// WithCustomCleanup registers an additional AfterEach step.
func (b *SuiteBuilder) WithCustomCleanup(cleanup func() error) *SuiteBuilder {
	b.customCleanup = append(b.customCleanup, cleanup)
	return b
}

// Build registers BeforeEach/AfterEach against the enclosing Ginkgo
// container and returns a Components pointer that's populated fresh
// before every test.
func (b *SuiteBuilder) Build() *Components {
	components := &Components{}

	BeforeEach(func() {
		components.Context = context.Background()

		if b.withLogger {
			components.Logger = logrus.New()
			components.Logger.SetLevel(b.logLevel)
		}
		if b.withStore {
			components.Store = workflow.NewStore()
		}
		if b.withDatastore {
			components.Datastorage = NewFakeDatastorageClient()
		}

		for _, setup := range b.customSetup {
			gomega.Expect(setup()).To(gomega.Succeed(), "custom setup failed")
		}
	})

	AfterEach(func() {
		for _, cleanup := range b.customCleanup {
			gomega.Expect(cleanup()).To(gomega.Succeed(), "custom cleanup failed")
		}
	})

	return components
}

// StandardUnitSuite builds a suite with just a logger, the common case
// for pure-function and single-package unit tests.
func StandardUnitSuite() *Components {
	return NewSuiteBuilder().Build()
}

// WorkflowUnitSuite builds a suite with a logger and an in-memory
// workflow.Store, for scheduler/engine tests.
func WorkflowUnitSuite() *Components {
	return NewSuiteBuilder().WithStore().Build()
}
