// Package drawdown runs the four step drawdown flow against a line of
// credit: installmentation, plan selection, confirmation and the
// amortization table.
package drawdown

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lendingops/internal/config"
	"lendingops/internal/lendingapi"
	"lendingops/internal/telemetry"
	"lendingops/lib/correlation"
)

const (
	PathInstallmentation  = "/dcb/lending/v1/drawdown/installmentation"
	PathSubmitToSaving    = "/dcb/lending/v1/drawdown/submit-to-saving"
	PathConfirmToSaving   = "/dcb/lending/v1/drawdown/confirm-to-saving"
	PathConfirmToBiller   = "/dcb/lending/v1/drawdown/confirm-to-biller"
	PathAmortizationTable = "/dcb/lending/v1/drawdown/amortization-table"
)

const defaultConfirmNote = "DISBURSEMENT"

type State string

const (
	StatePending              State = "PENDING"
	StateInstallmentRequested State = "INSTALLMENT_REQUESTED"
	StatePlanSelected         State = "PLAN_SELECTED"
	StateConfirmed            State = "CONFIRMED"
	StateAmortizationFetched  State = "AMORTIZATION_FETCHED"
	StateAborted              State = "ABORTED"
)

var ErrMissingDrawdownToken = errors.New("failed to extract drawdownToken from installmentation response")

// ErrNoInstallmentPlans is an installmentation response without a plan list.
var ErrNoInstallmentPlans = errors.New("installmentation response has no installment plans")

// Step is the record of one remote call of the flow.
type Step struct {
	Name       string
	URL        string
	RequestId  string
	StatusCode int
	Code       string
}

// Session is everything one run of the flow produced. It only lives for
// the duration of the invocation.
type Session struct {
	Institution       string
	State             State
	TraceParent       string
	ChannelTxnRefId   string
	DrawdownToken     string
	SelectedPlanId    int
	SelectedPlanTenor string
	// Amortization is the data of the amortization table response.
	Amortization any
	Steps        []Step
}

type Orchestrator struct {
	exec    lendingapi.Executor
	extract lendingapi.Extractor
	tel     telemetry.API

	requestId   func() string
	traceParent func() string
}

func NewOrchestrator(exec lendingapi.Executor, extract lendingapi.Extractor, tel telemetry.API) *Orchestrator {
	return &Orchestrator{
		exec:        exec,
		extract:     extract,
		tel:         telemetry.NewScopedAPI("drawdown", tel),
		requestId:   correlation.RequestID,
		traceParent: correlation.TraceParent,
	}
}

type flow struct {
	*Orchestrator
	inst    *config.Institution
	session *Session
}

func (f flow) call(ctx context.Context, name, url string, body map[string]any) lendingapi.Response {
	requestId := f.requestId()
	f.tel.ReportInfo(
		fmt.Sprintf("step %d: %s", len(f.session.Steps)+1, name),
		"url", url,
		"request_id", requestId,
	)
	f.tel.ReportDebug("request body", "step", name, "body", body)

	res := f.exec.Execute(ctx, lendingapi.Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: f.inst.CallHeaders(config.HeadersDrawdown, requestId, f.session.TraceParent),
		Body:    body,
	})
	f.session.Steps = append(f.session.Steps, Step{
		Name:       name,
		URL:        url,
		RequestId:  requestId,
		StatusCode: res.StatusCode,
		Code:       res.Code(),
	})
	return res
}

// Run executes the whole flow for inst. On any failure the returned session
// is in StateAborted and holds whatever was gathered up to that point.
func (o *Orchestrator) Run(ctx context.Context, inst *config.Institution) (Session, error) {
	session := Session{
		Institution: inst.Name,
		State:       StatePending,
	}

	err := inst.ValidateDrawdown()
	if err != nil {
		session.State = StateAborted
		return session, err
	}

	session.TraceParent = o.traceParent()
	session.ChannelTxnRefId = o.requestId()
	session.SelectedPlanId = *inst.SelectedPlanId

	f := flow{Orchestrator: o, inst: inst, session: &session}
	err = f.run(ctx)
	if err != nil {
		o.tel.ReportBroken("run", "institution", inst.Name, "state", session.State, "err", err)
		session.State = StateAborted
		return session, err
	}
	return session, nil
}

func (f flow) run(ctx context.Context) error {
	inst := f.inst
	s := f.session

	installment := map[string]any{
		"locAccountNo":      inst.LocAccountNo,
		"toAccountNo":       inst.ToAccountNo,
		"productMarketCode": inst.ProductMarketCode,
		"disburseAmount":    inst.DisburseAmount,
		"currency":          inst.CurrencyOrDefault(),
	}
	if inst.ChannelId != "" {
		installment["channelId"] = inst.ChannelId
	}
	if inst.CcdId != "" {
		installment["ccdId"] = inst.CcdId
	}
	res := f.call(ctx, "installmentation", inst.URL(PathInstallmentation), installment)
	s.State = StateInstallmentRequested

	token, err := f.extract.ExtractString(res, "data.drawdownToken", "", "DRAWDOWN_TOKEN")
	if err != nil {
		return err
	}
	if token == "" {
		return ErrMissingDrawdownToken
	}
	s.DrawdownToken = token

	tenor, err := f.selectTenor(res)
	if err != nil {
		return err
	}
	s.SelectedPlanTenor = tenor

	res = f.call(ctx, "submit-to-saving", inst.URL(PathSubmitToSaving), map[string]any{
		"drawdownToken":   token,
		"channelTxnRefId": s.ChannelTxnRefId,
		"selectedPlanId":  s.SelectedPlanId,
	})
	err = f.extract.Check(res, "SUBMIT_TO_SAVING")
	if err != nil {
		return err
	}
	s.State = StatePlanSelected

	switch inst.Drawdown() {
	case config.DrawdownSaving:
		note := inst.ConfirmNote
		if note == "" {
			note = defaultConfirmNote
		}
		res = f.call(ctx, "confirm-to-saving", inst.URL(PathConfirmToSaving), map[string]any{
			"drawdownToken": token,
			"note":          note,
		})
		err = f.extract.Check(res, "CONFIRM_TO_SAVING")
	case config.DrawdownBill:
		res = f.call(ctx, "confirm-to-biller", inst.URL(PathConfirmToBiller), map[string]any{
			"drawdownToken": token,
		})
		err = f.extract.Check(res, "CONFIRM_TO_BILLER")
	default:
		// unreachable after ValidateDrawdown, kept so a new type cannot
		// silently skip confirmation
		err = inst.ValidateDrawdownType()
	}
	if err != nil {
		return err
	}
	s.State = StateConfirmed

	var amount any = inst.DisburseAmount
	if inst.AmortizationAmountAsText {
		amount = strconv.FormatFloat(inst.DisburseAmount, 'f', -1, 64)
	}
	res = f.call(ctx, "amortization-table", inst.AmortizationURL(PathAmortizationTable), map[string]any{
		"accountNumber":  inst.LocAccountNo,
		"drawdownAmount": amount,
		"tenor":          tenor,
	})
	table, err := f.extract.Extract(res, "data", nil, "AMORTIZATION_TABLE")
	if err != nil {
		return err
	}
	s.Amortization = table
	s.State = StateAmortizationFetched

	return nil
}

func describe(v any) string {
	if v == nil {
		return "missing"
	}
	return fmt.Sprintf("a %T, not a list", v)
}

// selectTenor picks the tenor of the configured plan out of the
// installmentation response.
func (f flow) selectTenor(res lendingapi.Response) (string, error) {
	planId := f.session.SelectedPlanId

	plans, err := f.extract.Extract(res, "data.installmentPlan", nil, "INSTALLMENT_PLAN")
	if err != nil {
		return "", err
	}
	list, ok := plans.([]any)
	if !ok {
		return "", fmt.Errorf("%w: data.installmentPlan is %s", ErrNoInstallmentPlans, describe(plans))
	}
	if planId >= len(list) {
		return "", &config.ConfigError{
			Key: fmt.Sprintf("institutions.%s.selected_plan_id", f.inst.Name),
			Reason: fmt.Sprintf(
				"plan %d is out of range, the installmentation response offered %d plan(s)",
				planId, len(list),
			),
		}
	}

	tenor, err := f.extract.ExtractString(
		res,
		fmt.Sprintf("data.installmentPlan.%d.tenor", planId),
		"",
		"TENOR",
	)
	if err != nil {
		return "", err
	}
	if tenor == "" {
		return "", fmt.Errorf("installment plan %d has no tenor", planId)
	}
	return tenor, nil
}
