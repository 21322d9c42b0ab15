package mcp

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/regions"
)

// number reads a numeric argument. JSON numbers arrive as float64; numeric
// strings are accepted too. NaN and infinities are rejected.
func number(args map[string]interface{}, key string) (float64, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, true, fmt.Errorf("%s must be a number", key)
		}
		f = parsed
	default:
		return 0, true, fmt.Errorf("%s must be a number", key)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, fmt.Errorf("%s must be a finite number", key)
	}
	return f, true, nil
}

func requireNumber(args map[string]interface{}, key string) (float64, error) {
	v, ok, err := number(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("required argument %q not found", key)
	}
	return v, nil
}

// integer reads a whole-number argument, returning def when it is absent
func integer(args map[string]interface{}, key string, def int) (int, error) {
	v, ok, err := number(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
	if math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("%s is out of range", key)
	}
	return int(v), nil
}

func requireInteger(args map[string]interface{}, key string) (int, error) {
	if _, ok := args[key]; !ok {
		return 0, fmt.Errorf("required argument %q not found", key)
	}
	return integer(args, key, 0)
}

func optionalString(args map[string]interface{}, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

// kindArg reads the region kind, defaulting to redact
func kindArg(args map[string]interface{}) (regions.Kind, error) {
	raw := optionalString(args, "kind")
	if raw == "" {
		return regions.KindRedact, nil
	}
	return regions.ParseKind(raw)
}

func boxArg(args map[string]interface{}) (geom.Rect, error) {
	var c [4]float64
	for i, key := range []string{"x0", "y0", "x1", "y1"} {
		v, err := requireNumber(args, key)
		if err != nil {
			return geom.Rect{}, err
		}
		c[i] = v
	}
	return geom.NewRect(c[0], c[1], c[2], c[3]), nil
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
