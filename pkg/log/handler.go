package log

import (
	"github.com/YuminosukeSato/datalab/pkg/errors"
	crdb "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// appendErr writes err under key, plus its taxonomy kind and the stack trace
// recorded by cockroachdb/errors when one is available.
func appendErr(e *zerolog.Event, key string, err error) {
	e.AnErr(key, err)
	if kind := errors.KindOf(err); kind != "" {
		e.Str(ErrorKindKey, string(kind))
	}
	if stacktrace := extractStacktrace(err); stacktrace != "" {
		e.Str(StacktraceAttrKey, stacktrace)
	}
}

func extractStacktrace(err error) string {
	safeDetails := crdb.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
