// Package ml defines the inference contracts each stage handler (pkg/stages)
// depends on: ASR transcription, document QA field extraction, damage
// detection (VQA), zero-shot routing classification, and summarization.
//
// Each model is its own external inference collaborator in production (a
// hosted model-serving endpoint), so every contract here is a plain Go
// interface — generated gRPC/protobuf stubs are not available in this
// module (see DESIGN.md), so stage handlers depend on these interfaces
// directly and a caller wires in whatever transport implements them. Every
// interface also has a deterministic Sandbox implementation for local/test
// runs, ported from original_source/common/ml/*.py's use_stub() branches.
package ml

import "context"

// Transcript is the ASR stage's output.
type Transcript struct {
	Text       string
	Confidence float64
}

// DocFields is the DocQA stage's raw per-field extraction, before
// pkg/normalize merges it with regex-extracted fields.
type DocFields struct {
	OrderID    *string
	Amount     *string
	Currency   *string
	OrderDate  *string
	SKU        *string
	Confidence map[string]float64
}

// Classification is the zero-shot routing stage's output.
type Classification struct {
	Label  string
	Scores map[string]float64
}

// Summary is the summarization stage's output.
type Summary struct {
	Text   string
	Tokens int
}

// RouteLabels are the closed set of zero-shot classification labels (spec
// §4.3), in the original's label order — LABELS in zeroshot.py.
var RouteLabels = []string{"refund", "not_received", "warranty", "address_change", "how_to", "other"}

// ASR transcribes an audio attachment.
type ASR interface {
	Transcribe(ctx context.Context, audio []byte, mime string) (Transcript, error)
}

// DocQA extracts order fields from a document/image attachment.
type DocQA interface {
	ExtractFields(ctx context.Context, doc []byte, mime string) (DocFields, error)
}

// VQA detects visible damage in an image attachment.
type VQA interface {
	IsDamaged(ctx context.Context, image []byte) (bool, error)
}

// Classifier performs zero-shot routing classification over message text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Summarizer produces a bounded-length summary of message text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxChars int) (Summary, error)
}
