package provenance

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// BBoxFromMap converts one of the supported box shapes into corner form:
//
//	{x0, y0, x1, y1}
//	{left, top, right, bottom}
//	{x, y, width, height}
//	{left, top, width, height}   (Textract Geometry.BoundingBox)
//
// Keys match case-insensitively. Unrecognized shapes, non-numeric values and
// degenerate boxes yield nil, which callers treat as "no geometry".
func BBoxFromMap(m map[string]any) *schema.BoundingBox {
	if len(m) == 0 {
		return nil
	}
	get := lowerKeys(m)
	if v, ok := numbers(get, "x0", "y0", "x1", "y1"); ok {
		return buildOrNil(v[0], v[1], v[2], v[3])
	}
	if v, ok := numbers(get, "left", "top", "right", "bottom"); ok {
		return buildOrNil(v[0], v[1], v[2], v[3])
	}
	if v, ok := numbers(get, "x", "y", "width", "height"); ok {
		return buildOrNil(v[0], v[1], v[0]+v[2], v[1]+v[3])
	}
	if v, ok := numbers(get, "left", "top", "width", "height"); ok {
		return buildOrNil(v[0], v[1], v[0]+v[2], v[1]+v[3])
	}
	return nil
}

// BBoxFromRaw sniffs a raw vendor record for geometry. It understands
// Document AI boundingPoly vertices, Azure boundingRegions polygons (both as
// point objects and flat coordinate lists), Textract Geometry and 4-element
// bbox arrays, then falls back to the generic keys bbox, bounding_box,
// boundingBox and geometry.
func BBoxFromRaw(raw map[string]any) *schema.BoundingBox {
	if len(raw) == 0 {
		return nil
	}
	get := lowerKeys(raw)
	if poly, ok := get["boundingpoly"].(map[string]any); ok {
		if b := bboxFromPoints(lowerKeys(poly)["vertices"]); b != nil {
			return b
		}
		if b := bboxFromPoints(lowerKeys(poly)["normalizedvertices"]); b != nil {
			return b
		}
	}
	if regions, ok := get["boundingregions"].([]any); ok && len(regions) > 0 {
		if region, ok := regions[0].(map[string]any); ok {
			if b := bboxFromPoints(lowerKeys(region)["polygon"]); b != nil {
				return b
			}
		}
	}
	if b := bboxFromPoints(get["polygon"]); b != nil {
		return b
	}
	if geo, ok := get["geometry"].(map[string]any); ok {
		g := lowerKeys(geo)
		if bb, ok := g["boundingbox"].(map[string]any); ok {
			if b := BBoxFromMap(bb); b != nil {
				return b
			}
		}
		if b := bboxFromPoints(g["polygon"]); b != nil {
			return b
		}
	}
	for _, key := range []string{"bbox", "bounding_box", "boundingbox", "geometry"} {
		switch v := get[key].(type) {
		case map[string]any:
			if b := BBoxFromMap(v); b != nil {
				return b
			}
		case []any:
			if len(v) == 4 {
				if c, ok := floatsOf(v); ok {
					return buildOrNil(c[0], c[1], c[2], c[3])
				}
			}
		case []float64:
			if len(v) == 4 {
				return buildOrNil(v[0], v[1], v[2], v[3])
			}
		}
	}
	return nil
}

// bboxFromPoints takes the min/max over a polygon given either as
// [{x,y},...] or as a flat [x0,y0,x1,y1,...] list.
func bboxFromPoints(v any) *schema.BoundingBox {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	var xs, ys []float64
	if _, isMap := list[0].(map[string]any); isMap {
		for _, p := range list {
			pm, ok := p.(map[string]any)
			if !ok {
				return nil
			}
			pl := lowerKeys(pm)
			// Document AI omits zero coordinates.
			x, _ := toFloat(pl["x"])
			y, _ := toFloat(pl["y"])
			xs = append(xs, x)
			ys = append(ys, y)
		}
	} else {
		flat, ok := floatsOf(list)
		if !ok || len(flat)%2 != 0 {
			return nil
		}
		for i := 0; i < len(flat); i += 2 {
			xs = append(xs, flat[i])
			ys = append(ys, flat[i+1])
		}
	}
	x0, x1 := minMax(xs)
	y0, y1 := minMax(ys)
	return buildOrNil(x0, y0, x1, y1)
}

func buildOrNil(x0, y0, x1, y1 float64) *schema.BoundingBox {
	b, err := BuildBBox(x0, y0, x1, y1)
	if err != nil {
		return nil
	}
	return &b
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func numbers(m map[string]any, keys ...string) ([]float64, bool) {
	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		v, present := m[k]
		if !present {
			return nil, false
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func floatsOf(list []any) ([]float64, bool) {
	out := make([]float64, 0, len(list))
	for _, v := range list {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func minMax(v []float64) (float64, float64) {
	lo, hi := v[0], v[0]
	for _, f := range v[1:] {
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	return lo, hi
}

// toFloat accepts the numeric representations JSON decoding and adapters
// produce. Booleans are rejected.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
