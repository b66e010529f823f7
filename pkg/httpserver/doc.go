// Package httpserver runs an http.Handler with configurable timeouts and
// drains it when the run context is canceled. Signal handling is left to the
// caller, typically via signal.NotifyContext in main.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// LivenessHandler and ReadinessHandler implement the /health endpoints;
// readiness runs named dependency checks and answers 503 if any fails.
package httpserver
