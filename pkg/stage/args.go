// Package stage holds the small amount of shared plumbing every concrete
// stage handler in pkg/stages needs: decoding broker task arguments and
// classifying attachment MIME types against the stage routing rules spec
// §4.2 defines.
package stage

import (
	"fmt"
	"strings"
)

// Int64Arg decodes a broker task argument as an int64. Task args round-trip
// through JSON, so numeric values arrive as float64.
func Int64Arg(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("stage: missing arg %q", key)
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("stage: arg %q has unexpected type %T", key, v)
	}
}

// IsAudio reports whether mime routes to the ASR stage.
func IsAudio(mime string) bool { return strings.HasPrefix(mime, "audio/") }

// IsPDF reports whether mime routes to the document-handling stages as a PDF.
func IsPDF(mime string) bool { return strings.HasPrefix(mime, "application/pdf") }

// IsImage reports whether mime routes to the document-handling stages as
// an image.
func IsImage(mime string) bool { return strings.HasPrefix(mime, "image/") }

// IsDocOrImage reports whether mime is DocQA/VQA-eligible (PDF or image).
func IsDocOrImage(mime string) bool { return IsPDF(mime) || IsImage(mime) }
