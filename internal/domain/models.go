package domain

import "time"

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusDone       ItemStatus = "done"
	ItemStatusError      ItemStatus = "error"
)

type ExtractionStatus string

const (
	ExtractionStatusValid   ExtractionStatus = "valid"
	ExtractionStatusWarning ExtractionStatus = "warning"
	ExtractionStatusInvalid ExtractionStatus = "invalid"
)

// SourceFile carries the raw document bytes and their metadata. It is
// immutable after submission; derived rows share the same instance.
type SourceFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// RibData holds the extracted bank-account fields. Empty string means the
// field was not detected.
type RibData struct {
	IBAN      string `json:"iban"`
	BIC       string `json:"bic"`
	OwnerName string `json:"owner_name"`
	BankName  string `json:"bank_name"`
}

// ExtractionResult is one decoded record from the analyzer's NDJSON stream.
// A multi-page document yields one record per detected page.
type ExtractionResult struct {
	Status            ExtractionStatus `json:"status"`
	ConfidenceScore   float64          `json:"confidence_score"`
	ExtractionMethod  string           `json:"extraction_method,omitempty"`
	ChecksumValid     bool             `json:"checksum_valid"`
	RibKeyValid       *bool            `json:"rib_key_valid,omitempty"`
	ValidationDetails []string         `json:"validation_details,omitempty"`
	// PageNumber is 0 when the record does not correspond to a specific page.
	PageNumber int     `json:"page_number,omitempty"`
	Data       RibData `json:"data"`
	Message    string  `json:"message,omitempty"`
}

// WorkItem is one row of the result list: the item created at submission
// time, or a derived row appended for an additional page of the same file.
type WorkItem struct {
	ID           string            `json:"id"`
	File         SourceFile        `json:"file"`
	Status       ItemStatus        `json:"status"`
	Result       *ExtractionResult `json:"result,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// HasIBAN reports whether the row carries a non-empty detected IBAN.
func (w WorkItem) HasIBAN() bool {
	return w.Result != nil && w.Result.Data.IBAN != ""
}

type Filter string

const (
	FilterAll         Filter = "all"
	FilterDetected    Filter = "detected"
	FilterNotDetected Filter = "not-detected"
)

// Matches applies the standard list filters: "detected" keeps rows with an
// IBAN, "not-detected" keeps completed rows without one, "all" keeps every
// row.
func (f Filter) Matches(item WorkItem) bool {
	switch f {
	case FilterDetected:
		return item.HasIBAN()
	case FilterNotDetected:
		return item.Status == ItemStatusDone && !item.HasIBAN()
	default:
		return true
	}
}

func ParseFilter(raw string) (Filter, error) {
	switch raw {
	case "", string(FilterAll):
		return FilterAll, nil
	case string(FilterDetected):
		return FilterDetected, nil
	case string(FilterNotDetected):
		return FilterNotDetected, nil
	default:
		return "", ErrInvalidFilter
	}
}
