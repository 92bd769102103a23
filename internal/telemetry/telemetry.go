package telemetry

import (
	"fmt"
)

// API is an abstraction over logging, every flow component receives one
// explicitly instead of writing to a process-wide logger.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed in a way that stops the
	// current flow or needs an operator to look at it.
	//
	// The `id` names the **component** that broke, not the specific line.
	// ex. a failed installmentation call in the drawdown orchestrator is
	// `drawdown: step.installmentation`, the transport detail goes into params.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	ReportBroken(id string, params ...any)

	// ReportWarning reports a scenario that does not stop the flow but that
	// an operator may want to know about, like falling back to a default value.
	//
	// For what value to provide as `id` refer to ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportInfo reports progress of a flow, ex. the step being called.
	ReportInfo(msg string, params ...any)

	// ReportDebug reports some debug information that is hidden unless
	// verbose logging is enabled.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the size of some result, ex. rows deleted.
	ReportCount(id string, count int64)
}

// ScopedAPI is a telemetry API that attaches a namespace for a given API, kind of like creating a
// "sub" logger using things like log.New(), in which you can define the prefix for the logs.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportInfo(msg string, params ...any) {
	s.inner.ReportInfo(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
