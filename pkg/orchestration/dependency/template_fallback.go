package dependency

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// InMemoryTemplateFallback stands in for the workflow template store when
// it's unreachable: templates are kept in process memory, retrievable by
// type and ordered by reliability so dispatch can still prefer the
// template most likely to succeed.
type InMemoryTemplateFallback struct {
	metricsTracker
	mu        sync.RWMutex
	templates []map[string]interface{}
	logger    *logrus.Logger
}

// NewInMemoryTemplateFallback builds an empty in-memory template fallback.
func NewInMemoryTemplateFallback(logger *logrus.Logger) *InMemoryTemplateFallback {
	return &InMemoryTemplateFallback{logger: logger}
}

// ProvideFallback handles "store_template" (persist a workflow template)
// and "get_templates_by_type" (retrieve, optionally ordered by a field).
func (f *InMemoryTemplateFallback) ProvideFallback(ctx context.Context, operation string, params map[string]interface{}) (interface{}, error) {
	switch operation {
	case "store_template":
		result, err := f.storeTemplate(params)
		f.record(err)
		return result, err
	case "get_templates_by_type":
		result, err := f.getTemplatesByType(params)
		f.record(err)
		return result, err
	default:
		err := fmt.Errorf("template fallback does not support operation %q", operation)
		f.record(err)
		return nil, err
	}
}

func (f *InMemoryTemplateFallback) record(err error) {
	if err != nil {
		f.recordFailure()
		return
	}
	f.recordSuccess()
}

func (f *InMemoryTemplateFallback) storeTemplate(params map[string]interface{}) (interface{}, error) {
	template, ok := params["template"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("template fallback store requires a template")
	}

	f.mu.Lock()
	f.templates = append(f.templates, template)
	f.mu.Unlock()
	return template, nil
}

func (f *InMemoryTemplateFallback) getTemplatesByType(params map[string]interface{}) (interface{}, error) {
	templateType, _ := params["type"].(string)
	orderBy, _ := params["order_by"].(string)

	f.mu.RLock()
	matched := make([]map[string]interface{}, 0, len(f.templates))
	for _, template := range f.templates {
		if template["type"] == templateType {
			matched = append(matched, template)
		}
	}
	f.mu.RUnlock()

	if orderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			return toFloat(matched[i][orderBy]) > toFloat(matched[j][orderBy])
		})
	}
	return matched, nil
}

// GetMetrics returns a snapshot of this fallback's usage counters.
func (f *InMemoryTemplateFallback) GetMetrics() FallbackMetrics {
	return f.snapshot()
}

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
