package telemetry

import (
	"strings"
	"sync"
)

type Kind int

const (
	KindBroken Kind = iota
	KindWarning
	KindInfo
	KindDebug
	KindCount
)

type Report struct {
	Kind   Kind
	Id     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is used by tests
// to assert that a component reported what it should have.
type Recorder struct {
	mu      sync.Mutex
	Reports []Report
}

func (r *Recorder) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(Report{Kind: KindBroken, Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(Report{Kind: KindWarning, Id: id, Params: params})
}

func (r *Recorder) ReportInfo(msg string, params ...any) {
	r.add(Report{Kind: KindInfo, Id: msg, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(Report{Kind: KindDebug, Id: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(Report{Kind: KindCount, Id: id, Count: count})
}

// Find returns the reports of the given kind whose id contains substr.
func (r *Recorder) Find(kind Kind, substr string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, report := range r.Reports {
		if report.Kind == kind && strings.Contains(report.Id, substr) {
			out = append(out, report)
		}
	}
	return out
}
