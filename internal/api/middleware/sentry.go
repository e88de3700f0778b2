package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// SentryMiddleware opens a Sentry transaction per request, continues incoming
// traces, and records panics and 5xx responses. No-op when Sentry was never
// initialized.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get("sentry-trace"); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get("baggage")))
		}

		transaction := sentry.StartTransaction(r.Context(),
			fmt.Sprintf("%s %s", r.Method, r.URL.Path), options...)
		defer transaction.Finish()

		r = r.WithContext(sentry.SetHubOnContext(transaction.Context(), hub))

		hub.Scope().SetContext("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"remote_addr": r.RemoteAddr,
		})
		if requestID := GetRequestID(r.Context()); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}
		if ua := r.UserAgent(); ua != "" {
			hub.Scope().SetTag("user_agent", ua)
		}

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := &sentryResponseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		transaction.Status = spanStatus(status)
		transaction.SetData("http.response.status_code", status)

		// The auth middleware runs inside this one and mirrors the firm into
		// a header, since its context value is not visible here.
		firmID := GetFirmID(r.Context())
		if firmID == "" {
			firmID = r.Header.Get("X-Firm-ID")
		}
		if firmID != "" {
			hub.Scope().SetTag("firm_id", firmID)
			transaction.SetTag("firm_id", firmID)
		}

		if status >= 500 {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)))
		}
	})
}

var spanStatusByCode = map[int]sentry.SpanStatus{
	http.StatusBadRequest:          sentry.SpanStatusInvalidArgument,
	http.StatusUnauthorized:        sentry.SpanStatusUnauthenticated,
	http.StatusForbidden:           sentry.SpanStatusPermissionDenied,
	http.StatusNotFound:            sentry.SpanStatusNotFound,
	http.StatusConflict:            sentry.SpanStatusAlreadyExists,
	http.StatusTooManyRequests:     sentry.SpanStatusResourceExhausted,
	499:                            sentry.SpanStatusCanceled,
	http.StatusInternalServerError: sentry.SpanStatusInternalError,
	http.StatusNotImplemented:      sentry.SpanStatusUnimplemented,
	http.StatusServiceUnavailable:  sentry.SpanStatusUnavailable,
	http.StatusGatewayTimeout:      sentry.SpanStatusDeadlineExceeded,
}

func spanStatus(status int) sentry.SpanStatus {
	if s, ok := spanStatusByCode[status]; ok {
		return s
	}
	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}

type sentryResponseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *sentryResponseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *sentryResponseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
