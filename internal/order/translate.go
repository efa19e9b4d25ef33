package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookworm-cart/internal/model"
)

// Shopper-facing messages.
const (
	MsgFallback     = "We couldn't place your order. Please try again."
	MsgNetwork      = "We couldn't reach the store. Please check your connection and try again."
	MsgOutOfStock   = "Some items in your cart are out of stock. Please review your cart and try again."
	MsgEmptyOrder   = "Your cart is empty. Add some books before checking out."
	MsgDuplicate    = "This order has already been placed."
	MsgSignInAgain  = "Your session has expired. Please sign in again."
	inputErrorShape = "Input error for '%s': %s"
)

// knownConflicts maps backend business-rule rejections (matched
// case-insensitively as substrings) to friendlier text.
var knownConflicts = []struct {
	match   string
	message string
}{
	{"out of stock", MsgOutOfStock},
	{"empty order", MsgEmptyOrder},
	{"already been placed", MsgDuplicate},
	{"duplicate order", MsgDuplicate},
}

// errorBody covers both backend error shapes: {"detail": "..."} and
// {"detail": [{"loc": [...], "msg": "..."}]}, plus a bare {"message": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

type fieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// TranslateError turns a failed CreateOrder into exactly one shopper-facing
// message. Precedence: the first field-level validation error, then a known
// business conflict, then the body's own detail or message, then a fixed
// fallback. The returned error always wraps the original.
func TranslateError(err error) *model.APIError {
	if err == nil {
		return nil
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, model.ErrNetwork) {
		return model.NewSubmissionError(http.StatusServiceUnavailable, MsgNetwork, err)
	}

	var se *SubmitError
	if !errors.As(err, &se) {
		return model.NewSubmissionError(http.StatusBadGateway, MsgFallback, fmt.Errorf("%w: %w", model.ErrUpstreamError, err))
	}

	status := se.StatusCode
	if status >= 500 {
		status = http.StatusBadGateway
	}

	var body errorBody
	if json.Unmarshal(se.Body, &body) != nil {
		return model.NewSubmissionError(status, MsgFallback, fmt.Errorf("%w: %w", statusSentinel(se.StatusCode), err))
	}

	// (a) field errors
	if fe, ok := firstFieldError(body.Detail); ok {
		return model.NewSubmissionError(http.StatusUnprocessableEntity,
			fmt.Sprintf(inputErrorShape, fieldName(fe.Loc), fe.Msg),
			fmt.Errorf("%w: %w", model.ErrInvalidRequest, err))
	}

	text := detailString(body.Detail)
	if text == "" {
		text = body.Message
	}

	// (b) known conflicts
	lower := strings.ToLower(text)
	for _, kc := range knownConflicts {
		if lower != "" && strings.Contains(lower, kc.match) {
			return model.NewSubmissionError(http.StatusConflict, kc.message, fmt.Errorf("%w: %w", model.ErrConflict, err))
		}
	}

	// A 401 detail ("Could not validate credentials") is not shopper-readable,
	// so it is replaced before the generic text of step (c).
	if se.StatusCode == http.StatusUnauthorized {
		return model.NewSubmissionError(http.StatusUnauthorized, MsgSignInAgain, fmt.Errorf("%w: %w", model.ErrUnauthorized, err))
	}

	// (c) generic detail or message
	if text != "" {
		return model.NewSubmissionError(status, text, fmt.Errorf("%w: %w", statusSentinel(se.StatusCode), err))
	}

	// (d)
	return model.NewSubmissionError(status, MsgFallback, fmt.Errorf("%w: %w", statusSentinel(se.StatusCode), err))
}

func firstFieldError(raw json.RawMessage) (fieldError, bool) {
	var list []fieldError
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil {
		return fieldError{}, false
	}
	for _, fe := range list {
		if fe.Msg != "" {
			return fe, true
		}
	}
	return fieldError{}, false
}

func detailString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// fieldName picks the innermost named segment of a validation loc, e.g.
// ["body", "items", 0, "quantity"] → "quantity".
func fieldName(loc []any) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if s, ok := loc[i].(string); ok && s != "" && s != "body" {
			return s
		}
	}
	return "request"
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.ErrUnauthorized
	case status == http.StatusConflict:
		return model.ErrConflict
	case status >= 400 && status < 500:
		return model.ErrInvalidRequest
	default:
		return model.ErrUpstreamError
	}
}
