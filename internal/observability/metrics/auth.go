// Package metrics holds the metric names and tag sets emitted by the session bootstrap flow.
package metrics

import (
	"time"

	obserrors "github.com/civicdesk/civicdesk/internal/observability/errors"
	"github.com/civicdesk/civicdesk/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metric names.
const (
	AuthLogin         = "auth.login"
	AuthLoginDuration = "auth.login.duration"
	AuthRegister      = "auth.register"
	AuthResolve       = "auth.profile.resolve"
)

// AuthMetric describes the outcome of one login or registration.
type AuthMetric struct {
	Name     string // AuthLogin or AuthRegister
	Role     string
	Source   string // profile source, when resolution ran
	Duration time.Duration
	Err      error
}

// EmitAuth counts the attempt and, for logins, records its duration.
func EmitAuth(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": ResultSuccess}
	if in.Err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(in.Err)
	}
	if in.Role != "" {
		tags["role"] = in.Role
	}
	if in.Source != "" {
		tags["profile_source"] = in.Source
	}
	sink.Count(in.Name, 1, tags)
	if in.Duration > 0 && in.Name == AuthLogin {
		sink.Timing(AuthLoginDuration, in.Duration, CloneTags(tags))
	}
}

// EmitResolve counts one profile resolution by source.
func EmitResolve(sink statsd.Sink, source string, degraded bool) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if degraded {
		result = ResultError
	}
	sink.Count(AuthResolve, 1, map[string]string{"source": source, "result": result})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
