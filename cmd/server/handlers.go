package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/himanishpuri/PoseCurve/pkg/logger"
	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/pose"
	"github.com/himanishpuri/PoseCurve/pkg/utils"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"

	maxBodyBytes   = 64 << 20
	maxUploadBytes = 512 << 20
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  posecurve.Service
	config   *ServerConfig
	log      posecurve.Logger
	started  time.Time
	requests atomic.Uint64
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service posecurve.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().With("[http]"),
		started: time.Now(),
	}
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

// wantsMsgpack reports whether the client asked for a msgpack response
func wantsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack)
}

// respond writes data as msgpack when the client accepts it, JSON otherwise
func (s *Server) respond(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	if r != nil && wantsMsgpack(r) {
		body, err := msgpack.Marshal(data)
		if err != nil {
			s.log.Errorf("Failed to encode msgpack response: %v", err)
			s.respondJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error: http.StatusText(http.StatusInternalServerError), Code: http.StatusInternalServerError,
			})
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(statusCode)
		_, _ = w.Write(body)
		return
	}
	s.respondJSON(w, statusCode, data)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	s.respond(w, r, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, posecurve.ErrInvalidInput),
		errors.Is(err, posecurve.ErrConfigOutOfRange),
		errors.Is(err, pose.ErrInvalidBones):
		return http.StatusBadRequest
	case errors.Is(err, posecurve.ErrClipNotFound):
		return http.StatusNotFound
	case errors.Is(err, posecurve.ErrNoPoseData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON or msgpack request body depending on Content-Type
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == contentTypeMsgpack {
		return msgpack.NewDecoder(body).Decode(v)
	}
	return json.NewDecoder(body).Decode(v)
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respond(w, r, http.StatusOK, map[string]any{
		"service": "PoseCurve API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":         "GET /health",
			"metrics":        "GET /api/health/metrics",
			"simplify":       "POST /api/simplify",
			"clips":          "GET /api/clips",
			"getClip":        "GET /api/clips/{id}",
			"exportAnim":     "GET /api/clips/{id}/anim",
			"deleteClip":     "DELETE /api/clips/{id}",
			"convertVideo":   "POST /api/convert",
			"convertPoses":   "POST /api/convert/poses",
			"convertYouTube": "POST /api/convert/youtube",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	clips, err := s.service.ListClips()
	if err != nil {
		s.log.Errorf("Failed to list clips for metrics: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	keyframes := 0
	for _, c := range clips {
		keyframes += c.KeyframeCount
	}

	s.respond(w, r, http.StatusOK, MetricsResponse{
		Status:        "healthy",
		DatabasePath:  s.config.DBPath,
		ClipCount:     len(clips),
		KeyframeCount: keyframes,
		Requests:      s.requests.Load(),
		UptimeSec:     time.Since(s.started).Seconds(),
	})
}

// handleSimplify handles POST /api/simplify
func (s *Server) handleSimplify(w http.ResponseWriter, r *http.Request) {
	var req SimplifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.log.Warnf("Failed to decode simplify request: %v", err)
		s.respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	keys, stats, err := s.service.SimplifyCurve(r.Context(), req.Samples, req.Config)
	if err != nil {
		s.respondError(w, r, statusFor(err), err.Error())
		return
	}

	s.log.Debugf("Simplified curve: %s", stats)
	s.respond(w, r, http.StatusOK, SimplifyResponse{
		Keyframes: keys,
		Stats:     statsDTO(stats),
	})
}

// handleListClips handles GET /api/clips
func (s *Server) handleListClips(w http.ResponseWriter, r *http.Request) {
	clips, err := s.service.ListClips()
	if err != nil {
		s.log.Errorf("Failed to list clips: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve clips")
		return
	}
	if clips == nil {
		clips = []models.ClipSummary{}
	}

	s.respond(w, r, http.StatusOK, ListClipsResponse{
		Clips: clips,
		Count: len(clips),
	})
}

// handleGetClip handles GET /api/clips/{id}
func (s *Server) handleGetClip(w http.ResponseWriter, r *http.Request, clipID string) {
	clip, err := s.service.GetClip(clipID)
	if err != nil {
		if status := statusFor(err); status != http.StatusNotFound {
			s.log.Errorf("Failed to get clip %s: %v", clipID, err)
		}
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Clip %s: %v", clipID, err))
		return
	}

	s.respond(w, r, http.StatusOK, clip)
}

// handleExportAnim handles GET /api/clips/{id}/anim
func (s *Server) handleExportAnim(w http.ResponseWriter, r *http.Request, clipID string) {
	clip, err := s.service.GetClip(clipID)
	if err != nil {
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Clip %s: %v", clipID, err))
		return
	}

	// render fully before writing headers so errors still map to a status
	var buf strings.Builder
	if err := s.service.ExportAnim(r.Context(), clipID, &buf); err != nil {
		s.log.Errorf("Failed to export clip %s: %v", clipID, err)
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Failed to export clip: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clip.Name+".anim"))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, buf.String())
}

// handleDeleteClip handles DELETE /api/clips/{id}
func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request, clipID string) {
	if err := s.service.DeleteClip(clipID); err != nil {
		if status := statusFor(err); status != http.StatusNotFound {
			s.log.Errorf("Failed to delete clip %s: %v", clipID, err)
		}
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Failed to delete clip: %v", err))
		return
	}

	s.log.Infof("Deleted clip %s", clipID)
	s.respond(w, r, http.StatusOK, DeleteClipResponse{
		Message: "Clip deleted successfully",
		ID:      clipID,
	})
}

// handleConvertVideo handles POST /api/convert (multipart video upload)
func (s *Server) handleConvertVideo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, r, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	person := 0
	if v := r.FormValue("person"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 0 {
			s.respondError(w, r, http.StatusBadRequest, "person must be a non-negative integer")
			return
		}
		person = p
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()

	uploadDir := filepath.Join(s.config.TempDir, "uploads")
	if err := utils.MakeDir(uploadDir); err != nil {
		s.log.Errorf("Failed to create upload dir: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to process upload")
		return
	}

	// a unique stem keeps cached poses of different uploads apart
	name := filepath.Base(header.Filename)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext) + "-" + utils.GenerateUUID()[:8]
	tempFile := filepath.Join(uploadDir, stem+ext)

	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	s.log.Infof("Converting uploaded video %s (person %d)", header.Filename, person)
	clip, err := s.service.ConvertVideo(ctx, tempFile, person)
	if err != nil {
		s.log.Errorf("Failed to convert video: %v", err)
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Failed to convert video: %v", err))
		return
	}

	s.respondConverted(w, r, "Video converted successfully", clip)
}

// handleConvertPoses handles POST /api/convert/poses
func (s *Server) handleConvertPoses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req ConvertPosesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Converting pose directory %s at %g fps", req.PosesDir, req.FrameRate)
	clip, err := s.service.ConvertPoses(ctx, req.PosesDir, req.FrameRate, req.Name, req.Person)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Errorf("Failed to convert poses: %v", err)
		}
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Failed to convert poses: %v", err))
		return
	}

	s.respondConverted(w, r, "Poses converted successfully", clip)
}

// handleConvertYouTube handles POST /api/convert/youtube
func (s *Server) handleConvertYouTube(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req ConvertYouTubeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Converting YouTube video: %s", req.YouTubeURL)
	clip, err := s.service.ConvertYouTube(ctx, req.YouTubeURL, req.Person)
	if err != nil {
		s.log.Errorf("Failed to convert YouTube video: %v", err)
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Failed to convert YouTube video: %v", err))
		return
	}

	s.respondConverted(w, r, "YouTube video converted successfully", clip)
}

func (s *Server) respondConverted(w http.ResponseWriter, r *http.Request, message string, clip *models.Clip) {
	s.log.Infof("Stored clip %s (%s): %d bones, %d keyframes", clip.Name, clip.ID, len(clip.Curves), clip.KeyframeCount())
	s.respond(w, r, http.StatusCreated, ConvertResponse{
		Message:       message,
		ID:            clip.ID,
		Name:          clip.Name,
		DurationSec:   clip.DurationSec,
		BoneCount:     len(clip.Curves),
		KeyframeCount: clip.KeyframeCount(),
	})
}

// handleSimplifyRoute routes /api/simplify
func (s *Server) handleSimplifyRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleSimplify(w, r)
}

// handleClips routes /api/clips
func (s *Server) handleClips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleListClips(w, r)
}

// handleClip routes /api/clips/{id} and /api/clips/{id}/anim
func (s *Server) handleClip(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/clips/"), "/")
	clipID, sub, _ := strings.Cut(rest, "/")

	if !utils.IsUUID(clipID) {
		s.respondError(w, r, http.StatusBadRequest, "Invalid clip ID")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.handleGetClip(w, r, clipID)
	case sub == "" && r.Method == http.MethodDelete:
		s.handleDeleteClip(w, r, clipID)
	case sub == "anim" && r.Method == http.MethodGet:
		s.handleExportAnim(w, r, clipID)
	case sub == "" || sub == "anim":
		s.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		http.NotFound(w, r)
	}
}

// handleConvertVideoRoute routes /api/convert
func (s *Server) handleConvertVideoRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleConvertVideo(w, r)
}

// handleConvertPosesRoute routes /api/convert/poses
func (s *Server) handleConvertPosesRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleConvertPoses(w, r)
}

// handleConvertYouTubeRoute routes /api/convert/youtube
func (s *Server) handleConvertYouTubeRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleConvertYouTube(w, r)
}
