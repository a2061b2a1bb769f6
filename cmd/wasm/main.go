//go:build js && wasm
// +build js,wasm

package main

import (
	"errors"
	"fmt"
	"math"
	"syscall/js"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorInvalidInput
	ErrorConfigOutOfRange
	ErrorProcessing
)

// Simplifies one curve and returns its keyframes.
// Args: times, values [, minTremblingFreq, mlfMaxErrorRatio, avgKeysPerSec]
// Returns: {error: number, data: [{t, value, slope}] | string, stats?: object}
func simplifyCurve(this js.Value, args []js.Value) interface{} {
	if len(args) != 2 && len(args) != 5 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 or 5 arguments: times, values[, minTremblingFreq, mlfMaxErrorRatio, avgKeysPerSec]")
	}

	times, err := readNumbers(args[0], "times")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	values, err := readNumbers(args[1], "values")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if len(times) != len(values) {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("times and values differ in length: %d vs %d", len(times), len(values)))
	}

	cfg := curve.DefaultConfig()
	if len(args) == 5 {
		for i, name := range []string{"minTremblingFreq", "mlfMaxErrorRatio", "avgKeysPerSec"} {
			if args[2+i].Type() != js.TypeNumber {
				return makeErrorResponse(ErrorInvalidArgs, name+" must be a number")
			}
		}
		minFreq := args[2].Float()
		if minFreq != math.Trunc(minFreq) {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("minTremblingFreq must be an integer, got %g", minFreq))
		}
		cfg = curve.Config{
			MinTremblingFreq: int(minFreq),
			MLFMaxErrorRatio: args[3].Float(),
			AvgKeysPerSec:    args[4].Float(),
		}
	}

	samples := make([]models.Sample, len(times))
	for i := range times {
		samples[i] = models.Sample{T: times[i], Value: values[i]}
	}

	keys, stats, err := curve.ProcessWithStats(samples, cfg)
	switch {
	case errors.Is(err, curve.ErrInvalidInput):
		return makeErrorResponse(ErrorInvalidInput, err.Error())
	case errors.Is(err, curve.ErrConfigOutOfRange):
		return makeErrorResponse(ErrorConfigOutOfRange, err.Error())
	case err != nil:
		return makeErrorResponse(ErrorProcessing, err.Error())
	}

	keyArray := js.Global().Get("Array").New()
	for i, k := range keys {
		keyObj := js.Global().Get("Object").New()
		keyObj.Set("t", k.T)
		keyObj.Set("value", k.Value)
		keyObj.Set("slope", k.Slope)
		keyArray.SetIndex(i, keyObj)
	}

	statsObj := js.Global().Get("Object").New()
	statsObj.Set("input", stats.Input)
	statsObj.Set("afterTrembling", stats.AfterTrembling)
	statsObj.Set("afterFit", stats.AfterFit)
	statsObj.Set("afterAverage", stats.AfterAverage)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", keyArray)
	result.Set("stats", statsObj)
	return result
}

// readNumbers copies an Array or Float64Array of numbers
func readNumbers(v js.Value, name string) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s must be an Array or Float64Array", name)
	}

	out := make([]float64, v.Length())
	for i := range out {
		el := v.Index(i)
		if el.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		out[i] = el.Float()
	}
	return out, nil
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 PoseCurve WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("simplifyCurve", js.FuncOf(simplifyCurve))

	if !console.IsUndefined() {
		console.Call("log", "📝 simplifyCurve function registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
		if !console.IsUndefined() {
			console.Call("log", "✅ wasmReady event dispatched")
		}
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ PoseCurve WASM module loaded and ready")
	}

	<-done
}
