package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/himanishpuri/PoseCurve/pkg/logger"
	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/pose"
)

// setupTestServer creates a server backed by a service on a temporary database
func setupTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()

	tmpDir := t.TempDir()
	quiet := logger.New(logger.Config{Level: logger.WARN, Output: io.Discard})
	svc, err := posecurve.NewService(
		posecurve.WithDBPath(filepath.Join(tmpDir, "server.sqlite3")),
		posecurve.WithTempDir(filepath.Join(tmpDir, "work")),
		posecurve.WithLogger(quiet),
		posecurve.WithBodyOrientation(0),
		posecurve.WithBones([]pose.BoneDef{
			{Start: pose.MidHip, End: pose.Neck, Parent: pose.NoParent, Path: "hips/spine"},
		}),
	)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	server := NewServer(svc, &ServerConfig{
		DBPath:         filepath.Join(tmpDir, "server.sqlite3"),
		TempDir:        filepath.Join(tmpDir, "work"),
		AllowedOrigins: []string{"*"},
	})
	server.log = quiet

	ts := httptest.NewServer(server.setupRoutes())
	t.Cleanup(ts.Close)
	return ts, server
}

// writeStillPoses writes n frames of an upright, motionless spine
func writeStillPoses(t *testing.T, n int) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "still")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create poses dir: %v", err)
	}
	for i := 0; i < n; i++ {
		kps := make([]float64, pose.NumJoints*3)
		kps[pose.MidHip*3], kps[pose.MidHip*3+1], kps[pose.MidHip*3+2] = 0.5, 0.7, 0.9
		kps[pose.Neck*3], kps[pose.Neck*3+1], kps[pose.Neck*3+2] = 0.5, 0.4, 0.9

		data, err := json.Marshal(pose.Frame{Version: 1.3, People: []pose.Person{{PersonID: []int{-1}, PoseKeypoints2D: kps}}})
		if err != nil {
			t.Fatalf("Failed to encode frame: %v", err)
		}
		name := filepath.Join(dir, fmt.Sprintf("still_%012d_keypoints.json", i))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			t.Fatalf("Failed to write frame: %v", err)
		}
	}
	return dir
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to encode body: %v", err)
	}
	resp, err := http.Post(url, contentTypeJSON, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, expected 200", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "healthy" {
		t.Errorf("status = %q, expected healthy", body["status"])
	}
}

func TestSimplify(t *testing.T) {
	ts, _ := setupTestServer(t)

	req := SimplifyRequest{
		Samples: []models.Sample{{T: 0, Value: 0}, {T: 1, Value: 5}, {T: 2, Value: 10}, {T: 3, Value: 15}, {T: 4, Value: 0}},
	}
	resp := postJSON(t, ts.URL+"/api/simplify", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, expected 200", resp.StatusCode)
	}

	var out SimplifyResponse
	decodeJSON(t, resp, &out)

	want := []float64{0, 3, 4}
	if len(out.Keyframes) != len(want) {
		t.Fatalf("got %d keyframes, expected %d: %+v", len(out.Keyframes), len(want), out.Keyframes)
	}
	for i, k := range out.Keyframes {
		if k.T != want[i] {
			t.Errorf("keyframe %d at t=%g, expected %g", i, k.T, want[i])
		}
	}
	if out.Stats.Input != 5 || out.Stats.AfterAverage != 3 {
		t.Errorf("unexpected stats: %+v", out.Stats)
	}
}

func TestSimplifyZeroConfigDisablesStages(t *testing.T) {
	ts, _ := setupTestServer(t)

	req := SimplifyRequest{
		Samples: []models.Sample{{T: 0, Value: 0}, {T: 1, Value: 5}, {T: 2, Value: 10}, {T: 3, Value: 15}, {T: 4, Value: 0}},
		Config:  &curve.Config{},
	}
	resp := postJSON(t, ts.URL+"/api/simplify", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, expected 200", resp.StatusCode)
	}

	var out SimplifyResponse
	decodeJSON(t, resp, &out)

	if len(out.Keyframes) != len(req.Samples) {
		t.Fatalf("got %d keyframes, expected all %d samples", len(out.Keyframes), len(req.Samples))
	}
	for i, k := range out.Keyframes {
		if k.T != req.Samples[i].T || k.Value != req.Samples[i].Value {
			t.Errorf("keyframe %d = (%g, %g), expected (%g, %g)", i, k.T, k.Value, req.Samples[i].T, req.Samples[i].Value)
		}
	}
	if out.Stats.Ratio != 1 {
		t.Errorf("Ratio = %g, expected 1", out.Stats.Ratio)
	}
}

func TestSimplifyMsgpack(t *testing.T) {
	ts, _ := setupTestServer(t)

	body, err := msgpack.Marshal(SimplifyRequest{
		Samples: []models.Sample{{T: 0, Value: 1}, {T: 1, Value: 2}, {T: 2, Value: 3}},
	})
	if err != nil {
		t.Fatalf("Failed to encode request: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/simplify", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentTypeMsgpack)
	req.Header.Set("Accept", contentTypeMsgpack)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /api/simplify failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, expected 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != contentTypeMsgpack {
		t.Errorf("Content-Type = %q, expected %q", ct, contentTypeMsgpack)
	}

	var out SimplifyResponse
	if err := msgpack.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode msgpack response: %v", err)
	}
	// a straight line keeps only its endpoints
	if len(out.Keyframes) != 2 {
		t.Fatalf("got %d keyframes, expected 2", len(out.Keyframes))
	}
	if out.Keyframes[0].Value != 1 || out.Keyframes[1].Value != 3 {
		t.Errorf("values = %g, %g, expected 1 and 3", out.Keyframes[0].Value, out.Keyframes[1].Value)
	}
}

func TestSimplifyRejectsBadRequests(t *testing.T) {
	ts, _ := setupTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"samples": [`},
		{"empty", `{"samples": []}`},
		{"single sample", `{"samples": [{"t": 0, "value": 1}]}`},
		{"unordered", `{"samples": [{"t": 1, "value": 1}, {"t": 0, "value": 2}]}`},
		{"ratio out of range", `{"samples": [{"t": 0, "value": 1}, {"t": 1, "value": 2}], "config": {"mlf_max_error_ratio": 1.5}}`},
		{"negative frequency", `{"samples": [{"t": 0, "value": 1}, {"t": 1, "value": 2}], "config": {"min_trembling_freq": -1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/simplify", contentTypeJSON, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			var body ErrorResponse
			decodeJSON(t, resp, &body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, expected 400 (%s)", resp.StatusCode, body.Message)
			}
		})
	}
}

func TestSimplifyMethodNotAllowed(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/simplify")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, expected 405", resp.StatusCode)
	}
}

func TestClipLifecycle(t *testing.T) {
	ts, _ := setupTestServer(t)
	dir := writeStillPoses(t, 30)

	resp := postJSON(t, ts.URL+"/api/convert/poses", ConvertPosesRequest{PosesDir: dir, FrameRate: 30, Name: "still"})
	if resp.StatusCode != http.StatusCreated {
		var e ErrorResponse
		decodeJSON(t, resp, &e)
		t.Fatalf("status = %d, expected 201: %s", resp.StatusCode, e.Message)
	}
	var created ConvertResponse
	decodeJSON(t, resp, &created)

	if created.Name != "still" || created.BoneCount != 1 {
		t.Errorf("unexpected conversion result: %+v", created)
	}
	if created.KeyframeCount != 2 {
		t.Errorf("KeyframeCount = %d, expected 2 for a motionless bone", created.KeyframeCount)
	}

	// list
	resp, err := http.Get(ts.URL + "/api/clips")
	if err != nil {
		t.Fatalf("GET /api/clips failed: %v", err)
	}
	var list ListClipsResponse
	decodeJSON(t, resp, &list)
	if list.Count != 1 || list.Clips[0].ID != created.ID {
		t.Fatalf("unexpected clip list: %+v", list)
	}

	// get
	resp, err = http.Get(ts.URL + "/api/clips/" + created.ID)
	if err != nil {
		t.Fatalf("GET clip failed: %v", err)
	}
	var clip models.Clip
	decodeJSON(t, resp, &clip)
	if len(clip.Curves) != 1 || clip.Curves[0].Path != "hips/spine" {
		t.Errorf("unexpected curves: %+v", clip.Curves)
	}

	// export
	resp, err = http.Get(ts.URL + "/api/clips/" + created.ID + "/anim")
	if err != nil {
		t.Fatalf("GET anim failed: %v", err)
	}
	anim, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anim status = %d, expected 200", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "still.anim") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	if !strings.Contains(string(anim), "path: hips/spine") {
		t.Error("exported clip is missing the bone path")
	}

	// metrics
	resp, err = http.Get(ts.URL + "/api/health/metrics")
	if err != nil {
		t.Fatalf("GET metrics failed: %v", err)
	}
	var metrics MetricsResponse
	decodeJSON(t, resp, &metrics)
	if metrics.ClipCount != 1 || metrics.KeyframeCount != 2 {
		t.Errorf("unexpected metrics: %+v", metrics)
	}

	// delete
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/clips/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, expected 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/clips/" + created.ID)
	if err != nil {
		t.Fatalf("GET clip failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after delete = %d, expected 404", resp.StatusCode)
	}
}

func TestClipRoutes(t *testing.T) {
	ts, _ := setupTestServer(t)
	missing := "0b6d4c1e-3f2a-4c8e-9d7b-1a2b3c4d5e6f"

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"invalid id", http.MethodGet, "/api/clips/not-a-uuid", http.StatusBadRequest},
		{"missing clip", http.MethodGet, "/api/clips/" + missing, http.StatusNotFound},
		{"missing anim", http.MethodGet, "/api/clips/" + missing + "/anim", http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/clips/" + missing, http.StatusNotFound},
		{"bad method", http.MethodPost, "/api/clips/" + missing, http.StatusMethodNotAllowed},
		{"unknown subresource", http.MethodGet, "/api/clips/" + missing + "/other", http.StatusNotFound},
		{"list wrong method", http.MethodPost, "/api/clips", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, expected %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestConvertPosesErrors(t *testing.T) {
	ts, _ := setupTestServer(t)

	tests := []struct {
		name   string
		req    ConvertPosesRequest
		status int
	}{
		{"missing dir", ConvertPosesRequest{FrameRate: 30}, http.StatusBadRequest},
		{"zero fps", ConvertPosesRequest{PosesDir: t.TempDir()}, http.StatusBadRequest},
		{"negative person", ConvertPosesRequest{PosesDir: t.TempDir(), FrameRate: 30, Person: -1}, http.StatusBadRequest},
		{"no frames", ConvertPosesRequest{PosesDir: t.TempDir(), FrameRate: 30}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/convert/poses", tt.req)
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, expected %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/simplify", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, expected 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, expected *", got)
	}
}

func TestCORSRestrictedOrigins(t *testing.T) {
	handler := corsMiddleware([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: Access-Control-Allow-Origin = %q, expected %q", tt.origin, got, tt.want)
		}
	}
}

func TestParseOrigins(t *testing.T) {
	got := parseOrigins("https://a.example.com, https://b.example.com")
	if len(got) != 2 || got[1] != "https://b.example.com" {
		t.Errorf("parseOrigins = %v", got)
	}
	if got := parseOrigins("*"); len(got) != 1 || got[0] != "*" {
		t.Errorf("parseOrigins(*) = %v", got)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := getClientIP(req); got != "10.0.0.1" {
		t.Errorf("getClientIP = %q, expected 10.0.0.1", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := getClientIP(req); got != "203.0.113.7" {
		t.Errorf("getClientIP = %q, expected 203.0.113.7", got)
	}
}
