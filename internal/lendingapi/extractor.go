package lendingapi

import (
	"errors"

	"lendingops/internal/errlog"
	"lendingops/internal/telemetry"
	"lendingops/lib/jsonpath"
)

const (
	report_extractor_application_error = "extractor.application-error"
	report_extractor_default           = "extractor.default"
	report_extractor_local_fault       = "extractor.local-fault"
)

// ErrNotObject is the local fault of a response body that decoded, but not
// into a JSON object.
var ErrNotObject = errors.New("response body is not a JSON object")

// Extractor checks normalized responses for application errors and pulls
// fields out of them.
type Extractor struct {
	tel  telemetry.API
	errs errlog.Sink
}

func NewExtractor(tel telemetry.API, errs errlog.Sink) Extractor {
	return Extractor{
		tel:  telemetry.NewScopedAPI("lendingapi", tel),
		errs: errs,
	}
}

func (e Extractor) appendLog(entry errlog.Entry) {
	err := e.errs.Append(entry)
	if err != nil {
		e.tel.ReportWarning("errlog.append", "err", err)
	}
}

// Check returns an *ApplicationError if the response carries a code other
// than the success code. `name` identifies the value or step in logs.
func (e Extractor) Check(res Response, name string) error {
	if !res.Failed() {
		return nil
	}

	appErr := &ApplicationError{
		Field:   name,
		Code:    res.Code(),
		Message: res.Message(),
		Body:    res.Body,
	}
	e.tel.ReportBroken(
		report_extractor_application_error,
		"field", name,
		"code", appErr.Code,
		"message", appErr.Message,
	)
	e.appendLog(errlog.Entry{
		Kind:    errlog.KindApplication,
		Field:   name,
		Code:    appErr.Code,
		Message: appErr.Message,
		Body:    res.Body,
	})
	return appErr
}

// Extract returns the value at the dot-separated `path` of the response
// body.
//
//   - an application error code returns an *ApplicationError.
//   - a missing path returns `def` and a warning, never an error.
//   - a body that could not be decoded, or whose root is not an object, is
//     logged as a network error and returns `def`, never an error.
func (e Extractor) Extract(res Response, path string, def any, name string) (any, error) {
	err := e.Check(res, name)
	if err != nil {
		return def, err
	}

	if _, isObject := res.Body.(map[string]any); res.DecodeErr != nil || !isObject {
		cause := res.DecodeErr
		if cause == nil {
			cause = ErrNotObject
		}
		e.tel.ReportBroken(report_extractor_local_fault, "field", name, "status", res.StatusCode, "err", cause)
		e.appendLog(errlog.Entry{
			Kind:    errlog.KindNetwork,
			Field:   name,
			Message: cause.Error(),
		})
		return def, nil
	}

	value, ok := jsonpath.Lookup(res.Body, path)
	if !ok {
		e.tel.ReportWarning(report_extractor_default, "field", name, "path", path)
		return def, nil
	}
	return value, nil
}

// ExtractString is Extract with the result rendered as text.
func (e Extractor) ExtractString(res Response, path, def, name string) (string, error) {
	value, err := e.Extract(res, path, def, name)
	if err != nil {
		return def, err
	}
	return jsonpath.Text(value), nil
}
