package config

import (
	"fmt"
	"strings"
)

type DrawdownType string

const (
	DrawdownSaving DrawdownType = "Saving"
	DrawdownBill   DrawdownType = "bill"
)

const (
	HeadersDrawdown = "drawdown"
	HeadersAccount  = "account"
	HeadersBalance  = "balance"
)

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslmode"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Institution is the profile of one bank integration. The drawdown and
// account flows are identical for every bank except for what is in here.
type Institution struct {
	Name string `json:"-"`

	BaseUrl string `json:"base_url"`
	// AmortizationBaseUrl overrides BaseUrl for the amortization table call.
	AmortizationBaseUrl string `json:"amortization_base_url"`
	// AccountBaseUrl overrides BaseUrl for account creation.
	AccountBaseUrl    string `json:"account_base_url"`
	BalanceInquiryUrl string `json:"balance_inquiry_url"`

	// Headers holds the static routing headers (x-channel-id, x-devops-*)
	// per call kind: "drawdown", "account" and "balance".
	Headers map[string]map[string]string `json:"headers"`

	LocAccountNo      string  `json:"loc_account_no"`
	ToAccountNo       string  `json:"to_account_no"`
	ProductMarketCode string  `json:"product_market_code"`
	DisburseAmount    float64 `json:"disburse_amount"`
	Currency          string  `json:"currency"`
	SelectedPlanId    *int    `json:"selected_plan_id"`
	// ChannelId is sent as channelId in the installmentation request.
	ChannelId string `json:"channel_id"`
	// CcdId is sent as ccdId in the installmentation and account requests.
	CcdId string `json:"ccd_id"`

	DrawdownType DrawdownType `json:"drawdown_type"`
	ConfirmNote  string       `json:"confirm_note"`
	// AmortizationAmountAsText sends drawdownAmount as a string in the
	// amortization table request.
	AmortizationAmountAsText bool `json:"amortization_amount_as_text"`

	AccountPayload map[string]any `json:"account_payload"`
	// AccountNumberPath is where the create response carries the account number.
	AccountNumberPath    string `json:"account_number_path"`
	PersistAccountNumber bool   `json:"persist_account_number"`

	Database DatabaseConfig `json:"db"`
	Redis    RedisConfig    `json:"redis"`

	// seed values, the state store overrides them once a flow persisted its own
	ContractRefId           string `json:"contract_ref_id"`
	SupervisorContractId    string `json:"supervisor_contract_id"`
	LocSmartContractId      string `json:"loc_smart_contract_id"`
	DrawdownSmartContractId string `json:"drawdown_smart_contract_id"`
	RedisKey                string `json:"redis_key"`
}

func trimSlash(url string) string {
	return strings.TrimSuffix(url, "/")
}

func (i *Institution) URL(path string) string {
	return trimSlash(i.BaseUrl) + path
}

func (i *Institution) AmortizationURL(path string) string {
	if i.AmortizationBaseUrl != "" {
		return trimSlash(i.AmortizationBaseUrl) + path
	}
	return i.URL(path)
}

func (i *Institution) AccountURL(path string) string {
	if i.AccountBaseUrl != "" {
		return trimSlash(i.AccountBaseUrl) + path
	}
	return i.URL(path)
}

// CallHeaders returns the headers of one call: the static set of `kind`
// plus the per-call correlation identifiers.
func (i *Institution) CallHeaders(kind, requestId, traceParent string) map[string]string {
	out := map[string]string{}
	for k, v := range i.Headers[kind] {
		out[k] = v
	}
	out["x-request-id"] = requestId
	out["x-traceparent"] = traceParent
	out["Content-Type"] = "application/json"
	return out
}

func (i *Institution) CurrencyOrDefault() string {
	if i.Currency == "" {
		return "THB"
	}
	return i.Currency
}

func (i *Institution) ProductMarketCodeOrDefault() string {
	if i.ProductMarketCode == "" {
		return "1207"
	}
	return i.ProductMarketCode
}

// Drawdown returns the configured confirmation path, Saving when unset.
func (i *Institution) Drawdown() DrawdownType {
	if i.DrawdownType == "" {
		return DrawdownSaving
	}
	return i.DrawdownType
}

func (i *Institution) key(field string) string {
	return fmt.Sprintf("institutions.%s.%s", i.Name, field)
}

// ValidateDrawdownType fails on anything but Saving or bill.
func (i *Institution) ValidateDrawdownType() error {
	switch i.Drawdown() {
	case DrawdownSaving, DrawdownBill:
		return nil
	}
	return &ConfigError{
		Key:    i.key("drawdown_type"),
		Reason: fmt.Sprintf("invalid value %q, must be 'Saving' or 'bill'", i.DrawdownType),
	}
}

// ValidateDrawdown checks every value the drawdown flow needs.
func (i *Institution) ValidateDrawdown() error {
	required := []struct {
		field string
		ok    bool
	}{
		{"base_url", i.BaseUrl != ""},
		{"loc_account_no", i.LocAccountNo != ""},
		{"disburse_amount", i.DisburseAmount > 0},
		{"to_account_no", i.ToAccountNo != ""},
		{"product_market_code", i.ProductMarketCode != ""},
		{"selected_plan_id", i.SelectedPlanId != nil},
	}
	for _, r := range required {
		if !r.ok {
			return &ConfigError{Key: i.key(r.field), Reason: "missing"}
		}
	}
	if i.SelectedPlanId != nil && *i.SelectedPlanId < 0 {
		return &ConfigError{Key: i.key("selected_plan_id"), Reason: "must not be negative"}
	}
	if i.ChannelId == "" && i.CcdId == "" {
		return &ConfigError{Key: i.key("ccd_id"), Reason: "missing (either channel_id or ccd_id is required)"}
	}
	return i.ValidateDrawdownType()
}

// Validate is ValidateDrawdown plus the values of the other flows that are
// cheap to check up front.
func (i *Institution) Validate() []error {
	var errs []error
	err := i.ValidateDrawdown()
	if err != nil {
		errs = append(errs, err)
	}
	if i.Database.Host == "" {
		errs = append(errs, &ConfigError{Key: i.key("db.host"), Reason: "missing"})
	}
	return errs
}
