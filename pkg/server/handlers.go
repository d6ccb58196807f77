package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/engine"
	"mercator-hq/ddsguard/pkg/telemetry/logging"
	"mercator-hq/ddsguard/pkg/validators"
)

// ErrorResponse is the body of every non-decision response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a request that could not be evaluated.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleEvaluate evaluates the request body and answers with the decision.
// Any document that decodes gets 200, compliant or not. Undecodable bodies
// get 400 with the malformed_document decision.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts := []engine.Option{engine.WithAuditContext(auditContext(r))}
	if raw := r.URL.Query().Get("now"); raw != "" {
		now, err := validators.ParseReferenceTime(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_now", err.Error())
			return
		}
		opts = append(opts, engine.WithNow(now))
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "read_failed", err.Error())
		return
	}

	d := s.engine.EvaluateBytes(ctx, data, formatOf(r.Header.Get("Content-Type")), opts...)

	status := http.StatusOK
	if d.HasIssue(engine.IssueMalformedDocument) {
		status = http.StatusBadRequest
	}

	logging.FromContext(logging.WithDocumentID(ctx, d.DocumentID), s.logger).Info("document evaluated",
		"document_type", d.DocumentType,
		"compliant", d.Compliant,
		"compliance_level", d.ComplianceLevel,
		"issues", len(d.Issues),
	)
	writeJSON(w, status, d)
}

// auditContext names the caller in the audit record.
func auditContext(r *http.Request) map[string]string {
	ctx := map[string]string{"source": "http"}
	if requestID := logging.GetRequestID(r.Context()); requestID != "" {
		ctx["request_id"] = requestID
	}
	return ctx
}

// formatOf maps a Content-Type to a document format. Unknown or missing
// types are sniffed.
func formatOf(contentType string) document.Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return document.FormatAuto
	}
	switch {
	case strings.HasSuffix(mediaType, "json"):
		return document.FormatJSON
	case strings.HasSuffix(mediaType, "yaml"):
		return document.FormatYAML
	default:
		return document.FormatAuto
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
