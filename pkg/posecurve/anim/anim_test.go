package anim

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/PoseCurve/pkg/models"
)

func testClip() *models.Clip {
	return &models.Clip{
		Name:        "dance0",
		DurationSec: 2.5,
		Curves: []models.BoneCurve{
			{
				Path: "hips/spine",
				Keys: []models.Keyframe{
					{T: 0, Value: 10, Slope: 0},
					{T: 1.25, Value: 35.5, Slope: 12},
					{T: 2.5, Value: 20, Slope: -12},
				},
			},
			{Path: "hips/spine/head"},
			{
				Path: "hips/leg",
				Keys: []models.Keyframe{
					{T: 0, Value: -90, Slope: 0},
					{T: 2.5, Value: -80, Slope: 0},
				},
			},
		},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testClip()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "%YAML 1.1\n%TAG !u! tag:unity3d.com,2011:\n--- !u!74 &7400000\nAnimationClip:\n") {
		t.Errorf("missing Unity header:\n%s", out[:min(len(out), 120)])
	}

	for _, want := range []string{
		"  m_Name: dance0\n",
		"    m_StopTime: 2.5\n",
		"        time: 1.25\n        value: {x: 0, y: 0, z: 35.5}\n        inSlope: {x: 0, y: 0, z: 12}\n        outSlope: {x: 0, y: 0, z: 12}\n",
		"        time: 1.25\n        value: 35.5\n        inSlope: 12\n        outSlope: 12\n",
		"    attribute: localEulerAnglesRaw.z\n    path: hips/spine\n",
		"    path: hips/leg\n",
		"  m_EulerCurves:\n  - curve:\n",
		"  m_EditorCurves:\n  - curve:\n",
		"  m_SampleRate: 60\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	if strings.Contains(out, "hips/spine/head") {
		t.Error("bone without keyframes should be omitted")
	}

	// 5 keys written twice: euler and editor curves
	if got := strings.Count(out, "      - serializedVersion: 3\n"); got != 10 {
		t.Errorf("got %d keys, expected 10", got)
	}
	if got := strings.Count(out, "    path: hips/spine\n"); got != 2 {
		t.Errorf("hips/spine appears in %d curves, expected 2", got)
	}
}

func TestWriteEditorKeysPerCurve(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testClip()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	editor := out[strings.Index(out, "  m_EditorCurves:"):]
	leg := editor[strings.Index(editor, "path: hips/spine"):]
	legCurve := leg[:strings.Index(leg, "path: hips/leg")]
	if got := strings.Count(legCurve, "serializedVersion: 3"); got != 2 {
		t.Errorf("second editor curve has %d keys, expected 2", got)
	}
}

func TestWriteEmptyClip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &models.Clip{Name: "empty"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"  m_EulerCurves: []\n  m_PositionCurves: []\n", "  m_EditorCurves: []\n  m_EulerEditorCurves: []\n", "m_StopTime: 0\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestWriteRejects(t *testing.T) {
	if err := Write(&bytes.Buffer{}, nil); err == nil {
		t.Error("expected an error for a nil clip")
	}
	clip := &models.Clip{Name: "bad", Curves: []models.BoneCurve{{Path: "a\nb", Keys: []models.Keyframe{{}}}}}
	if err := Write(&bytes.Buffer{}, clip); err == nil {
		t.Error("expected an error for a multi-line path")
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		fn   func(float64) string
		in   float64
		want string
	}{
		{formatTime, 0, "0"},
		{formatTime, 10, "10"},
		{formatTime, 1.0 / 3.0, "0.3333"},
		{formatTime, 0.03333333, "0.0333"},
		{formatNumber, 370.25, "370.25"},
		{formatNumber, -12, "-12"},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("format(%v) = %q, expected %q", tt.in, got, tt.want)
		}
	}

	if got := assetName("my: clip\n"); got != "my_ clip" {
		t.Errorf("assetName = %q", got)
	}
	if got := assetName("  "); got != "clip" {
		t.Errorf("assetName of blank = %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "dance0.anim")
	if err := WriteFile(path, testClip()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !bytes.Contains(data, []byte("m_Name: dance0")) {
		t.Error("written file does not contain the clip")
	}
}
