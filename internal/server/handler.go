package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/kfreiman/docconv/internal/convert"
	"github.com/kfreiman/docconv/internal/mcp"
)

// ConvertHandler accepts a multipart upload (file, target_format) and
// responds with the converted file as an attachment
func (s *Server) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := s.config.MaxUploadBytes()
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		s.logger.WarnContext(ctx, "malformed upload", "error", err)
		writeError(w, http.StatusBadRequest, "Missing file or target format")
		return
	}
	defer r.MultipartForm.RemoveAll()

	target, hasTarget := r.MultipartForm.Value["target_format"]
	file, header, err := r.FormFile("file")
	if err != nil {
		// a file part with an empty filename is parsed as a plain value
		if _, ok := r.MultipartForm.Value["file"]; ok && hasTarget {
			writeError(w, http.StatusBadRequest, "No selected file")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing file or target format")
		return
	}
	defer file.Close()

	if !hasTarget || len(target) == 0 {
		writeError(w, http.StatusBadRequest, "Missing file or target format")
		return
	}

	if s.admission != nil {
		if err := s.admission.Acquire(ctx, 1); err != nil {
			s.metrics.AdmissionRejected()
			s.logger.WarnContext(ctx, "gave up waiting for a conversion slot", "error", err)
			writeError(w, http.StatusServiceUnavailable, msgBusy)
			return
		}
		defer s.admission.Release(1)
	}

	// engines keep running after a client disconnect unless configured otherwise
	runCtx := ctx
	if !s.config.CancelOnDisconnect {
		runCtx = context.WithoutCancel(ctx)
	}

	delivered := false
	err = s.orchestrator.Run(runCtx, convert.Request{
		Filename:     header.Filename,
		TargetFormat: target[0],
		Content:      file,
	}, func(result *convert.Result) error {
		out, err := result.Open()
		if err != nil {
			return err
		}
		defer out.Close()

		h := w.Header()
		h.Set("Content-Type", "application/octet-stream")
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Name}))
		h.Set("Content-Length", strconv.FormatInt(result.Size, 10))
		if result.Pages > 0 {
			h.Set("X-Page-Count", strconv.Itoa(result.Pages))
		}
		w.WriteHeader(http.StatusOK)
		delivered = true

		_, err = io.Copy(w, out)
		return err
	})
	if err == nil {
		return
	}

	if delivered {
		s.logger.WarnContext(ctx, "failed to stream converted file", "error", err)
		return
	}

	status, message := statusFor(err)
	writeError(w, status, message)
}

// FormatsHandler lists the recognized formats per engine
func (s *Server) FormatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mcp.SupportedFormats())
}
