package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// The aggregator is inconsistent about wrapping: the same logical payload
// arrives under "data" on one endpoint, "result" on another, and bare on a
// third. Normalize tries each known wrapper in order and falls back to the
// whole document.
var wrapperKeys = []string{"data", "result", "response"}

// successTokens is the observed set of provider statuses that all mean the
// transaction went through. The provider documents no distinction between
// them, so they are treated as one opaque success set.
var successTokens = map[string]struct{}{
	"TXN":     {},
	"SAC":     {},
	"RCS":     {},
	"SUCCESS": {},
}

// Normalize decodes a heterogeneous aggregator response body into one
// canonical Outcome. A body that is not JSON at all is reported as
// ErrOutcomeUnknown: the call reached the provider, but what happened there
// cannot be determined from the reply.
func Normalize(body []byte) (Outcome, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return Outcome{}, fmt.Errorf("undecodable aggregator body: %w", ErrOutcomeUnknown)
	}

	payload := doc
	for _, key := range wrapperKeys {
		if inner, ok := doc[key].(map[string]any); ok {
			payload = inner
			break
		}
	}

	out := Outcome{
		Description:     firstString(payload, "message", "desc", "remark", "status_message"),
		ProviderOrderID: firstString(payload, "orderid", "order_id", "txid", "opid"),
		Amount:          firstDecimal(payload, "amount", "dueamount", "due_amount", "billamount"),
		CustomerName:    firstString(payload, "name", "custname", "customer_name"),
		DueDate:         firstString(payload, "duedate", "due_date"),
		BillNumber:      firstString(payload, "billnumber", "billno", "bill_no"),
		Raw:             body,
	}

	status := strings.ToUpper(firstString(payload, "status", "txstatus", "tx_status"))
	if _, ok := successTokens[status]; ok {
		out.Success = true
	} else if strings.Contains(strings.ToLower(out.Description), "success") {
		// Providers vary their status enumerations; the description text is
		// the fallback signal.
		out.Success = true
	}

	if out.Description == "" {
		out.Description = "Unknown"
	}
	return out, nil
}

func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstDecimal reads the first present numeric field. Absent or unparseable
// figures default to zero rather than failing the whole normalization.
func firstDecimal(payload map[string]any, keys ...string) decimal.Decimal {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case float64:
			return decimal.NewFromFloat(v)
		case string:
			if d, err := decimal.NewFromString(v); err == nil {
				return d
			}
		}
	}
	return decimal.Zero
}
