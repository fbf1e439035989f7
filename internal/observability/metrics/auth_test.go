package metrics

import (
	"sync"
	"testing"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	kind  string
	name  string
	value any
	tags  map[string]string
}

type recordingSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, recordedMetric{kind: "count", name: name, value: value, tags: tags})
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, recordedMetric{kind: "timing", name: name, value: value, tags: tags})
}

func TestEmitAuth_LoginSuccess(t *testing.T) {
	sink := &recordingSink{}
	EmitAuth(sink, AuthMetric{Name: AuthLogin, Role: "officer", Source: "stored", Duration: 20 * time.Millisecond})

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, AuthLogin, sink.metrics[0].name)
	assert.Equal(t, map[string]string{"result": "success", "role": "officer", "profile_source": "stored"}, sink.metrics[0].tags)
	assert.Equal(t, AuthLoginDuration, sink.metrics[1].name)
	assert.Equal(t, 20*time.Millisecond, sink.metrics[1].value)
}

func TestEmitAuth_RegisterFailure(t *testing.T) {
	sink := &recordingSink{}
	EmitAuth(sink, AuthMetric{Name: AuthRegister, Duration: time.Second, Err: domainauth.ErrWeakPassword})

	require.Len(t, sink.metrics, 1, "registration has no timing")
	assert.Equal(t, "error", sink.metrics[0].tags["result"])
	assert.Equal(t, "weak_password", sink.metrics[0].tags["error_class"])
}

func TestEmitResolve(t *testing.T) {
	sink := &recordingSink{}
	EmitResolve(sink, "synthesized", true)
	EmitResolve(nil, "stored", false)

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, map[string]string{"source": "synthesized", "result": "error"}, sink.metrics[0].tags)
}
