package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthorizationStarted(provider string, success bool) {}

func (n *NoopMetrics) RecordCallback(provider, outcome string) {}

func (n *NoopMetrics) RecordTokenRefresh(provider string, success bool, duration time.Duration) {}

func (n *NoopMetrics) RecordRevocation(provider string, remoteRevoked bool) {}

func (n *NoopMetrics) RecordCredentialRead(provider, result string) {}

func (n *NoopMetrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {}
