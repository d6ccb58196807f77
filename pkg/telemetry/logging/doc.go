// Package logging builds the structured logger used by every ddsguard
// component.
//
// New returns a *slog.Logger writing JSON or text. Records logged with a
// context pick up the request and document IDs stored by WithRequestID and
// WithDocumentID, and database passwords are masked before they reach the
// output:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "evaluation finished", "dsn", dsn)
//	// {"msg":"evaluation finished","dsn":"postgres://app:***@db/dds","request_id":"req-123"}
//
// Components derive their own logger with logger.With("component", name).
package logging
