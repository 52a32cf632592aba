package alertsource

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// AlertRecord is one warning event as delivered by the alert feed. Records
// are immutable once received; the controller only replaces whole sets.
// All descriptive fields are opaque strings from the source.
type AlertRecord struct {
	// ID is a source-assigned identifier that may not be stable across polls.
	ID string `json:"id"`

	// AlertID uniquely identifies the underlying event.
	AlertID string `json:"alertid"`

	// IssuedAt is the source-supplied issue timestamp string.
	IssuedAt string `json:"time"`

	// Category classifies the warning (opaque).
	Category string `json:"category"`

	// Header is the short human-readable summary, typically the area name.
	Header string `json:"header"`

	// Text is the full warning message.
	Text string `json:"text"`

	// TTLSeconds is the advisory validity duration. Display only; it never
	// expires a warning from the active set.
	TTLSeconds string `json:"ttlseconds"`

	// SourceReference is the source's own reference id.
	SourceReference string `json:"redwebno"`

	// Title is an additional descriptive field.
	Title string `json:"title"`
}

// issuedAtLayouts are the timestamp formats observed in feed responses.
var issuedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// IssuedTime parses the issue timestamp for display. The second return is
// false when the source string does not match a known layout.
func (r AlertRecord) IssuedTime() (time.Time, bool) {
	for _, layout := range issuedAtLayouts {
		if t, err := time.Parse(layout, r.IssuedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AlertResponse is a successful alert feed response.
type AlertResponse struct {
	Date   string        `json:"date"`
	Status int           `json:"status"`
	Items  []AlertRecord `json:"items"`
}

// parseResponse decodes a feed response body, rejecting bodies whose items
// field is missing or not a list.
func parseResponse(data []byte) (*AlertResponse, error) {
	var envelope struct {
		Date   string          `json:"date"`
		Status int             `json:"status"`
		Items  json.RawMessage `json:"items"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "malformed response body")}
	}

	if len(envelope.Items) == 0 || string(envelope.Items) == "null" {
		return nil, &ParseError{Err: errors.New("response is missing items list")}
	}

	var items []AlertRecord
	if err := json.Unmarshal(envelope.Items, &items); err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "items is not a list of alert records")}
	}

	return &AlertResponse{
		Date:   envelope.Date,
		Status: envelope.Status,
		Items:  items,
	}, nil
}
