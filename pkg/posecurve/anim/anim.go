// Package anim writes clips as Unity AnimationClip assets (.anim).
package anim

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/utils"
)

// Attribute is the animated property of every curve: rotation around z.
const Attribute = "localEulerAnglesRaw.z"

// SampleRate is the clip's nominal sample rate; keys carry their own times.
const SampleRate = 60

var clipTemplate = template.Must(template.New("clip").Funcs(template.FuncMap{
	"num":  formatNumber,
	"time": formatTime,
}).Parse(`%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!74 &7400000
AnimationClip:
  m_ObjectHideFlags: 0
  m_CorrespondingSourceObject: {fileID: 0}
  m_PrefabInstance: {fileID: 0}
  m_PrefabAsset: {fileID: 0}
  m_Name: {{.Name}}
  serializedVersion: 6
  m_Legacy: 0
  m_Compressed: 0
  m_UseHighQualityCurve: 1
  m_RotationCurves: []
  m_CompressedRotationCurves: []
  m_EulerCurves:{{if not .Curves}} []{{end}}
{{- range .Curves}}
  - curve:
      serializedVersion: 2
      m_Curve:
{{- range .Keys}}
      - serializedVersion: 3
        time: {{time .T}}
        value: {x: 0, y: 0, z: {{num .Value}}}
        inSlope: {x: 0, y: 0, z: {{num .Slope}}}
        outSlope: {x: 0, y: 0, z: {{num .Slope}}}
        tangentMode: 0
        weightedMode: 0
        inWeight: {x: 0, y: 0, z: 0.5}
        outWeight: {x: 0, y: 0, z: 0.5}
{{- end}}
      m_PreInfinity: 2
      m_PostInfinity: 2
      m_RotationOrder: 4
    path: {{.Path}}
{{- end}}
  m_PositionCurves: []
  m_ScaleCurves: []
  m_FloatCurves: []
  m_PPtrCurves: []
  m_SampleRate: {{.SampleRate}}
  m_WrapMode: 0
  m_Bounds:
    m_Center: {x: 0, y: 0, z: 0}
    m_Extent: {x: 0, y: 0, z: 0}
  m_ClipBindingConstant:
    genericBindings:
    - serializedVersion: 2
      path: 134607859
      attribute: 4
      script: {fileID: 0}
      typeID: 4
      customType: 4
      isPPtrCurve: 0
    pptrCurveMapping: []
  m_AnimationClipSettings:
    serializedVersion: 2
    m_AdditiveReferencePoseClip: {fileID: 0}
    m_AdditiveReferencePoseTime: 0
    m_StartTime: 0
    m_StopTime: {{time .Duration}}
    m_OrientationOffsetY: 0
    m_Level: 0
    m_CycleOffset: 0
    m_HasAdditiveReferencePose: 0
    m_LoopTime: 1
    m_LoopBlend: 0
    m_LoopBlendOrientation: 0
    m_LoopBlendPositionY: 0
    m_LoopBlendPositionXZ: 0
    m_KeepOriginalOrientation: 0
    m_KeepOriginalPositionY: 1
    m_KeepOriginalPositionXZ: 0
    m_HeightFromFeet: 0
    m_Mirror: 0
  m_EditorCurves:{{if not .Curves}} []{{end}}
{{- range .Curves}}
  - curve:
      serializedVersion: 2
      m_Curve:
{{- range .Keys}}
      - serializedVersion: 3
        time: {{time .T}}
        value: {{num .Value}}
        inSlope: {{num .Slope}}
        outSlope: {{num .Slope}}
        tangentMode: 0
        weightedMode: 0
        inWeight: 0.5
        outWeight: 0.5
{{- end}}
      m_PreInfinity: 2
      m_PostInfinity: 2
      m_RotationOrder: 4
    attribute: {{$.Attribute}}
    path: {{.Path}}
    classID: 4
    script: {fileID: 0}
{{- end}}
  m_EulerEditorCurves: []
  m_HasGenericRootTransform: 0
  m_HasMotionFloatCurves: 0
  m_Events: []
`))

type clipView struct {
	Name       string
	Duration   float64
	SampleRate int
	Attribute  string
	Curves     []models.BoneCurve
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatTime(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// assetName keeps m_Name on one plain YAML scalar.
func assetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ':', '#', '{', '}', '[', ']', ',', '"', '\'':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "clip"
	}
	return name
}

// Write renders clip as a Unity .anim document. Each bone with keyframes
// becomes one euler curve and one editor curve on Attribute; bones without
// keyframes are left out.
func Write(w io.Writer, clip *models.Clip) error {
	if clip == nil {
		return fmt.Errorf("nil clip")
	}

	view := clipView{
		Name:       assetName(clip.Name),
		Duration:   clip.DurationSec,
		SampleRate: SampleRate,
		Attribute:  Attribute,
	}
	for _, c := range clip.Curves {
		if len(c.Keys) == 0 {
			continue
		}
		if strings.ContainsAny(c.Path, "\n\r") {
			return fmt.Errorf("bone path %q spans lines", c.Path)
		}
		view.Curves = append(view.Curves, c)
	}

	bw := bufio.NewWriter(w)
	if err := clipTemplate.Execute(bw, view); err != nil {
		return fmt.Errorf("rendering clip %s: %w", clip.Name, err)
	}
	return bw.Flush()
}

// WriteFile writes clip to path, creating parent directories. An existing
// file is overwritten.
func WriteFile(path string, clip *models.Clip) error {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, clip); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
