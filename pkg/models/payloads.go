package models

// DocFields is the set of order-related facts extracted from a document,
// by DocQA or by the normalizer's regex fallback. Confidence is keyed by
// field name; a field absent from Confidence was never scored.
type DocFields struct {
	OrderID    *string            `json:"order_id,omitempty"`
	Amount     *string            `json:"amount,omitempty"`
	Currency   *string            `json:"currency,omitempty"`
	OrderDate  *string            `json:"order_date,omitempty"` // ISO yyyy-mm-dd
	SKU        *string            `json:"sku,omitempty"`
	Confidence map[string]float64 `json:"confidence,omitempty"`
}

// FieldSource names where a NormalizedFields field's value came from.
type FieldSource string

const (
	SourceDocQA FieldSource = "docqa"
	SourceRegex FieldSource = "regex"
)

// NormalizedFields is DocFields plus provenance: for every non-null field,
// Source records whether it came from DocQA or the regex fallback (spec
// §8 property 5 requires exactly this — an entry in Source for every
// field whose value is non-null, and no more).
type NormalizedFields struct {
	OrderID    *string                `json:"order_id,omitempty"`
	Amount     *string                `json:"amount,omitempty"`
	Currency   *string                `json:"currency,omitempty"`
	OrderDate  *string                `json:"order_date,omitempty"`
	SKU        *string                `json:"sku,omitempty"`
	Source     map[string]FieldSource `json:"source,omitempty"`
	Confidence map[string]float64     `json:"confidence,omitempty"`
}

// RouteLabel is one of the six classification routes (spec §4.3, L).
type RouteLabel string

const (
	RouteRefund        RouteLabel = "refund"
	RouteNotReceived   RouteLabel = "not_received"
	RouteWarranty      RouteLabel = "warranty"
	RouteAddressChange RouteLabel = "address_change"
	RouteHowTo         RouteLabel = "how_to"
	RouteOther         RouteLabel = "other"
)

// RouteLabels lists every valid route in the classifier's fixed label set.
var RouteLabels = []RouteLabel{RouteRefund, RouteNotReceived, RouteWarranty, RouteAddressChange, RouteHowTo, RouteOther}

// Classification is the zero-shot classifier's output.
type Classification struct {
	Label  RouteLabel             `json:"label"`
	Scores map[RouteLabel]float64 `json:"scores"`
}

// Transcript is the ASR stage's output.
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Summary is the summarization stage's output.
type Summary struct {
	Text   string `json:"summary"`
	Tokens int    `json:"tokens"`
}

// --- Event payload variants (spec §4.3 table) ---

// ASRDonePayload is ASR_DONE's payload.
type ASRDonePayload struct {
	AttachmentID int64   `json:"attachment_id"`
	MessageID    int64   `json:"message_id"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
}

// DocQADonePayload is DOCQA_DONE's payload.
type DocQADonePayload struct {
	AttachmentID int64     `json:"attachment_id"`
	MessageID    int64     `json:"message_id"`
	Fields       DocFields `json:"fields"`
}

// VQADonePayload is VQA_DONE's payload. IsDamaged is nil for the terminal
// unsupported-MIME/pdf-not-supported case (spec §4.2 step 4).
type VQADonePayload struct {
	AttachmentID int64   `json:"attachment_id"`
	MessageID    int64   `json:"message_id"`
	IsDamaged    *bool   `json:"is_damaged"`
	Reason       *string `json:"reason,omitempty"`
	MIME         string  `json:"mime"`
}

// VQAReasonUnsupportedMIME and VQAReasonPDFNotSupported are the two
// terminal reasons VQADonePayload.Reason may carry.
const (
	VQAReasonUnsupportedMIME = "unsupported_mime"
	VQAReasonPDFNotSupported = "pdf_not_supported"
)

// ClassifyDonePayload is CLASSIFY_DONE's payload.
type ClassifyDonePayload struct {
	MessageID int64                  `json:"message_id"`
	Label     RouteLabel             `json:"label"`
	Scores    map[RouteLabel]float64 `json:"scores"`
}

// SummaryDonePayload is SUMMARY_DONE's payload.
type SummaryDonePayload struct {
	MessageID int64  `json:"message_id"`
	Summary   string `json:"summary"`
}

// DocQASelectedPayload is DOCQA_SELECTED's payload.
type DocQASelectedPayload struct {
	MessageID    int64     `json:"message_id"`
	AttachmentID int64     `json:"attachment_id"`
	Fields       DocFields `json:"fields"`
}

// NormalizeDonePayload is NORMALIZE_DONE's payload.
type NormalizeDonePayload struct {
	MessageID  int64            `json:"message_id"`
	Normalized NormalizedFields `json:"normalized"`
}

// FanoutDispatch records one dispatched task inside INGESTED_FANOUT's payload.
type FanoutDispatch struct {
	Task         string `json:"task"`
	AttachmentID int64  `json:"attachment_id"`
	TaskID       string `json:"task_id"`
}

// IngestedFanoutPayload is INGESTED_FANOUT's payload.
type IngestedFanoutPayload struct {
	MessageID  int64            `json:"message_id"`
	Dispatched []FanoutDispatch `json:"dispatched"`
}

// TicketCreatedPayload is TICKET_CREATED's payload.
type TicketCreatedPayload struct {
	MessageID  int64            `json:"message_id"`
	TicketID   int64            `json:"ticket_id"`
	Route      *string          `json:"route"`
	Summary    *string          `json:"summary"`
	Normalized NormalizedFields `json:"normalized"`
	DocFields  DocFields        `json:"doc_fields"`
}
