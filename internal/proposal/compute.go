package proposal

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/model"
)

// User-facing messages for the two failure classes.
const (
	MsgInvalidInput      = "Invalid input"
	MsgComputationFailed = "Computation failed"
)

// Request is the boundary input: raw usage, partial pricing, optional roof
// analysis.
type Request struct {
	MonthlyUsageKWh  float64             `json:"monthly_usage_kwh" validate:"gte=10,lte=5000"`
	PricingOverrides *Overrides          `json:"pricing_overrides,omitempty"`
	RoofAnalysis     *model.RoofAnalysis `json:"roof_analysis,omitempty"`
}

// FieldError is one rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError lists every rejected field of a request.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Param != "" {
			parts[i] = fmt.Sprintf("%s: %s=%s", f.Field, f.Rule, f.Param)
			continue
		}
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Rule)
	}
	return "proposal: invalid input: " + strings.Join(parts, "; ")
}

// ComputationError wraps an unexpected failure inside the engine.
type ComputationError struct {
	Err error
}

func (e *ComputationError) Error() string { return "proposal: computation failed: " + e.Err.Error() }

func (e *ComputationError) Unwrap() error { return e.Err }

// Message maps an error from Compute to its user-facing message.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return MsgInvalidInput
	}
	return MsgComputationFailed
}

// Engine validates requests, merges them with the base tariff, and runs
// Propose.
type Engine struct {
	tariff   model.NetBillingParams
	tuning   Tuning
	validate *validator.Validate
}

// NewEngine returns an engine over a base tariff and tuning. Both are checked
// against the same bounds as requests.
func NewEngine(tariff model.NetBillingParams, tuning Tuning) (*Engine, error) {
	e := &Engine{tariff: tariff, tuning: tuning, validate: newValidator()}
	if err := e.check(tariff); err != nil {
		return nil, eris.Wrap(err, "proposal: base tariff")
	}
	if err := e.check(tuning); err != nil {
		return nil, eris.Wrap(err, "proposal: tuning")
	}
	return e, nil
}

// DefaultEngine uses the Poland defaults and default tuning.
func DefaultEngine() *Engine {
	return &Engine{tariff: PolandDefaults(), tuning: DefaultTuning(), validate: newValidator()}
}

// Tariff returns the base tariff.
func (e *Engine) Tariff() model.NetBillingParams { return e.tariff }

// Tuning returns the heuristics in use.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Input validates req and returns the defaulted engine input.
func (e *Engine) Input(req Request) (model.ProposalInput, error) {
	if err := e.check(req); err != nil {
		return model.ProposalInput{}, err
	}
	pricing := req.PricingOverrides.Apply(e.tariff)
	if err := e.check(pricing); err != nil {
		return model.ProposalInput{}, err
	}
	return model.ProposalInput{
		MonthlyUsageKWh: req.MonthlyUsageKWh,
		Pricing:         pricing,
		RoofAnalysis:    req.RoofAnalysis,
	}, nil
}

// Compute validates req and proposes scenarios. It returns a
// *ValidationError for rejected input and a *ComputationError if the engine
// fails.
func (e *Engine) Compute(req Request) (res *model.ProposalResult, err error) {
	in, err := e.Input(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &ComputationError{Err: eris.Errorf("panic: %v", r)}
		}
		if err != nil {
			zap.L().Error("proposal: compute failed", zap.Error(err))
		}
	}()

	out := Propose(in, e.tuning)
	if err := checkFinite(out); err != nil {
		return nil, &ComputationError{Err: err}
	}
	return &out, nil
}

// Sensitivity recomputes req with the buy price scaled by (1+dPrice) and the
// monthly usage scaled by (1+dUsage).
func (e *Engine) Sensitivity(req Request, dPrice, dUsage float64) (*model.ProposalResult, error) {
	base := req.PricingOverrides.Apply(e.tariff)
	buy := roundTo(base.BuyPricePerKWh*(1+dPrice), 2)

	shifted := req
	shifted.MonthlyUsageKWh = float64(roundInt(req.MonthlyUsageKWh * (1 + dUsage)))
	shifted.PricingOverrides = req.PricingOverrides.Merge(&Overrides{BuyPricePerKWh: &buy})
	return e.Compute(shifted)
}

func (e *Engine) check(v any) error {
	err := e.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "proposal: validate")
	}
	out := &ValidationError{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		}
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func checkFinite(r model.ProposalResult) error {
	for _, s := range r.Scenarios {
		vals := []float64{s.SizeKWp, s.CapexTotal, s.ROIPct}
		if s.PaybackYears != nil {
			vals = append(vals, *s.PaybackYears)
		}
		if s.LCOEPerKWh != nil {
			vals = append(vals, *s.LCOEPerKWh)
		}
		for _, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return eris.Errorf("non-finite metric in %s scenario", s.Strategy)
			}
		}
	}
	return nil
}
