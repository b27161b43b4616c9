package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"captionsync/internal/captions"
	"captionsync/internal/logging"
	"captionsync/internal/pipeline"
	"captionsync/internal/transcriptcache"
)

const (
	multipartMemory = 32 << 20
	minPrefixLength = 6
)

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result := s.pipeline.Run(r.Context(), pipeline.Request{Filename: header.Filename, Data: data})
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.pipeline.CacheStats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	result := s.pipeline.ClearCache()
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	formatValue := query.Get("format")
	if formatValue == "" {
		formatValue = string(captions.FormatSRT)
	}
	format, err := captions.ParseFormat(formatValue)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	speakers := query.Get("speakers") == "1" || strings.EqualFold(query.Get("speakers"), "true")

	name := strings.TrimSuffix(filepath.Base(entry.Filename), filepath.Ext(entry.Filename))
	if name == "" || name == "." {
		name = entry.Fingerprint[:12]
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+string(format)))
	if err := captions.Write(w, format, entry.Transcript, captions.WriteOptions{Speakers: speakers}); err != nil {
		s.logger.Debug("subtitle write aborted", logging.Error(err))
	}
}

// lookup resolves the {fingerprint} URL parameter, accepting unambiguous
// prefixes, and writes the error response itself.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (transcriptcache.Entry, bool) {
	ref := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "fingerprint")))
	if len(ref) < minPrefixLength || !isHex(ref) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("fingerprint must be at least %d hexadecimal characters", minPrefixLength))
		return transcriptcache.Entry{}, false
	}
	if entry, ok := s.cache.Get(ref); ok {
		return entry, true
	}
	entry, err := s.cache.FindPrefix(ref)
	if err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, transcriptcache.ErrNotFound) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err.Error())
		return transcriptcache.Entry{}, false
	}
	return entry, true
}

func isHex(value string) bool {
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
