package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resumeagent/internal/observability"
	"resumeagent/internal/types"
)

// validateInputs checks required fields and the per-field size budget
func (s *Server) validateInputs(fields ...[2]string) (string, string, bool) {
	for _, f := range fields {
		name, value := f[0], f[1]
		if strings.TrimSpace(value) == "" {
			return fmt.Sprintf("Missing %s", name), fmt.Sprintf("%s field is required", name), false
		}
		if s.MaxRequestSize > 0 && len(value) > int(s.MaxRequestSize/2) {
			return fmt.Sprintf("%s too large", name),
				fmt.Sprintf("%s exceeds recommended size limit of %d characters", name, s.MaxRequestSize/2), false
		}
	}
	return "", "", true
}

func rejectRequest(w http.ResponseWriter, span trace.Span, title, message string) {
	span.RecordError(fmt.Errorf("%s", message))
	span.SetAttributes(attribute.String("error.type", "validation"))
	writeErrorResponse(w, title, message, http.StatusBadRequest)
}

// createScanHandler serves POST /scan
func (s *Server) createScanHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeErrorResponse(w, "Method not allowed", "use POST", http.StatusMethodNotAllowed)
			return
		}

		ctx, span := om.Tracer("resumeagent.api").Start(r.Context(), "api.scan")
		defer span.End()

		var req types.ScanRequest
		if err := parseJSONRequest(r, &req); err != nil {
			rejectRequest(w, span, "Invalid request body", err.Error())
			return
		}
		if title, msg, ok := s.validateInputs(
			[2]string{"jobDescription", req.JobDescription},
			[2]string{"originalResume", req.OriginalResume},
		); !ok {
			rejectRequest(w, span, title, msg)
			return
		}

		span.SetAttributes(
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.Int("request.resume_length", len(req.OriginalResume)),
			attribute.String("operation", "scan"),
		)

		result := s.backend.Agent.ScanGaps(ctx, req)
		span.SetAttributes(attribute.String("run_id", result.RunID))

		metrics := om.GetMetrics()
		if result.Error != "" {
			span.SetStatus(codes.Error, result.Error)
			metrics.RecordBusinessMetric(ctx, observability.MetricGapScan, false, om)
			writeJSON(w, http.StatusInternalServerError, result)
			return
		}

		metrics.RecordBusinessMetric(ctx, observability.MetricGapScan, true, om)
		writeJSON(w, http.StatusOK, result)
	}
}

// createOptimizeHandler serves POST /optimize
func (s *Server) createOptimizeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeErrorResponse(w, "Method not allowed", "use POST", http.StatusMethodNotAllowed)
			return
		}

		ctx, span := om.Tracer("resumeagent.api").Start(r.Context(), "api.optimize")
		defer span.End()

		var req types.OptimizeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			rejectRequest(w, span, "Invalid request body", err.Error())
			return
		}
		if title, msg, ok := s.validateInputs(
			[2]string{"jobDescription", req.JobDescription},
			[2]string{"originalResume", req.OriginalResume},
		); !ok {
			rejectRequest(w, span, title, msg)
			return
		}
		if s.MaxRequestSize > 0 && len(req.HumanNotes) > int(s.MaxRequestSize/2) {
			rejectRequest(w, span, "humanNotes too large",
				fmt.Sprintf("humanNotes exceeds recommended size limit of %d characters", s.MaxRequestSize/2))
			return
		}

		span.SetAttributes(
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.Int("request.resume_length", len(req.OriginalResume)),
			attribute.Int("request.notes_length", len(req.HumanNotes)),
			attribute.String("operation", "optimize"),
		)

		result := s.backend.Agent.Optimize(ctx, req)
		span.SetAttributes(attribute.String("run_id", result.RunID))

		metrics := om.GetMetrics()
		if result.Error != "" {
			span.SetStatus(codes.Error, result.Error)
			metrics.RecordBusinessMetric(ctx, observability.MetricResumeOptimized, false, om)
			writeJSON(w, http.StatusInternalServerError, result)
			return
		}

		metrics.RecordBusinessMetric(ctx, observability.MetricResumeOptimized, true, om,
			attribute.String("outcome", result.Outcome),
			attribute.Int("iterations", result.Iterations))
		for _, path := range []string{result.ResumePath, result.CoverLetterPath} {
			if path != "" {
				metrics.RecordBusinessMetric(ctx, observability.MetricDocumentExported, true, om)
			}
		}

		span.SetAttributes(
			attribute.Int("review.score", result.Score),
			attribute.Int("review.iterations", result.Iterations),
			attribute.String("review.outcome", result.Outcome),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

// artifactHandler serves GET /artifacts/{runID}/{name}
func (s *Server) artifactHandler(w http.ResponseWriter, r *http.Request) {
	if s.backend.Artifacts == nil {
		writeErrorResponse(w, "Export disabled", "document export is not enabled on this server", http.StatusNotFound)
		return
	}

	path, err := s.backend.Artifacts.Resolve(r.PathValue("runID"), r.PathValue("name"))
	if err != nil {
		writeErrorResponse(w, "Invalid artifact", err.Error(), http.StatusBadRequest)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeErrorResponse(w, "Artifact not found", "no such document for this run", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, path)
}

// createRateLimitMiddleware records a metric for every rejected request
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	limit := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			limit(next)(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		}
	}
}

// responseWrapper captures the status code written by a handler
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
