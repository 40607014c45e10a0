package errors

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs
const (
	TypeArithmetic       = "https://api.pincex.com/problems/arithmetic-error"
	TypeAssetMismatch    = "https://api.pincex.com/problems/asset-mismatch"
	TypeOrderNotFillable = "https://api.pincex.com/problems/order-not-fillable"
	TypeNegativeSpread   = "https://api.pincex.com/problems/negative-spread"
	TypeInvalidBatch     = "https://api.pincex.com/problems/invalid-batch"
	TypeInternalError    = "https://api.pincex.com/problems/internal-error"
)

// Problem titles
const (
	TitleArithmetic       = "Arithmetic Error"
	TitleAssetMismatch    = "Asset Mismatch"
	TitleOrderNotFillable = "Order Not Fillable"
	TitleNegativeSpread   = "Negative Spread"
	TitleInvalidBatch     = "Invalid Batch"
	TitleInternalError    = "Internal Error"
)

// ProblemDetails represents an RFC 7807 Problem Details document
type ProblemDetails struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	TraceID  string                 `json:"trace_id,omitempty"`
	Errors   []FieldError           `json:"errors,omitempty"`
	Extra    map[string]interface{} `json:"-"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return p.Detail
}

// WithTraceID adds a trace ID to the problem details
func (p *ProblemDetails) WithTraceID(traceID string) *ProblemDetails {
	p.TraceID = traceID
	return p
}

// WithExtra adds extra fields to the problem details (they will be serialized at the top level)
func (p *ProblemDetails) WithExtra(key string, value interface{}) *ProblemDetails {
	if p.Extra == nil {
		p.Extra = make(map[string]interface{})
	}
	p.Extra[key] = value
	return p
}

// MarshalJSON implements custom JSON marshaling to include extra fields at the top level
func (p *ProblemDetails) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{})
	result["type"] = p.Type
	result["title"] = p.Title
	result["status"] = p.Status
	if p.Detail != "" {
		result["detail"] = p.Detail
	}
	if p.Instance != "" {
		result["instance"] = p.Instance
	}
	if p.TraceID != "" {
		result["trace_id"] = p.TraceID
	}
	if len(p.Errors) > 0 {
		result["errors"] = p.Errors
	}
	for k, v := range p.Extra {
		result[k] = v
	}
	return json.Marshal(result)
}

// NewProblemDetails creates a generic problem details with all fields
func NewProblemDetails(problemType, title string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// FromError converts an engine error into problem details. Errors that do
// not carry a known kind become internal errors.
func FromError(err error, instance string) *ProblemDetails {
	var e *Error
	if !As(err, &e) {
		return NewProblemDetails(TypeInternalError, TitleInternalError, http.StatusInternalServerError, err.Error(), instance)
	}

	kind := KindOf(err)
	var pd *ProblemDetails
	switch kind {
	case KindArithmetic:
		pd = NewProblemDetails(TypeArithmetic, TitleArithmetic, http.StatusUnprocessableEntity, err.Error(), instance)
	case KindAssetMismatch:
		pd = NewProblemDetails(TypeAssetMismatch, TitleAssetMismatch, http.StatusBadRequest, err.Error(), instance)
	case KindOrderNotFillable:
		pd = NewProblemDetails(TypeOrderNotFillable, TitleOrderNotFillable, http.StatusConflict, err.Error(), instance)
	case KindNegativeSpread:
		pd = NewProblemDetails(TypeNegativeSpread, TitleNegativeSpread, http.StatusUnprocessableEntity, err.Error(), instance)
	case KindLengthMismatch, KindInvalidPair, KindEmptyOrders:
		pd = NewProblemDetails(TypeInvalidBatch, TitleInvalidBatch, http.StatusBadRequest, err.Error(), instance)
	default:
		pd = NewProblemDetails(TypeInternalError, TitleInternalError, http.StatusInternalServerError, err.Error(), instance)
	}
	pd.Errors = fieldsOf(err)
	return pd.WithExtra("kind", kind)
}

// fieldsOf collects field errors from every *Error in the chain.
func fieldsOf(err error) []FieldError {
	var fields []FieldError
	for err != nil {
		if e, ok := err.(*Error); ok {
			fields = append(fields, e.Fields...)
		}
		err = Unwrap(err)
	}
	return fields
}
