package vm

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat renders f the way the language prints floats: always with a
// fractional part or exponent.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// ToS converts v to its display string, as used by puts and TO_S.
func (g *Globals) ToS(v Value) string {
	if v.IsImmediate() {
		if v == Nil {
			return ""
		}
		return v.String()
	}
	if s := g.StringOf(v); s != nil {
		return s.String()
	}
	return g.Inspect(v)
}

// Inspect renders v for diagnostics.
func (g *Globals) Inspect(v Value) string {
	var sb strings.Builder
	g.inspect(&sb, v, 0)
	return sb.String()
}

const maxInspectDepth = 16

func (g *Globals) inspect(sb *strings.Builder, v Value, depth int) {
	if v.IsImmediate() {
		sb.WriteString(v.String())
		return
	}
	if depth > maxInspectDepth {
		sb.WriteString("[...]")
		return
	}
	obj := g.Heap.Get(v)
	switch obj.Kind {
	case ObjFixnum:
		n, _ := obj.BoxedFixnum()
		sb.WriteString(strconv.FormatInt(n, 10))
	case ObjFloat:
		f, _ := obj.BoxedFloat()
		sb.WriteString(formatFloat(f))
	case ObjString:
		sb.WriteString(strconv.Quote(obj.AsString().String()))
	case ObjArray:
		sb.WriteByte('[')
		for i, e := range obj.AsArray().Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			g.inspect(sb, e, depth+1)
		}
		sb.WriteByte(']')
	case ObjRange:
		r := obj.AsRange()
		g.inspect(sb, r.Start, depth+1)
		if r.Exclude {
			sb.WriteString("...")
		} else {
			sb.WriteString("..")
		}
		g.inspect(sb, r.End, depth+1)
	case ObjHash:
		h := obj.AsHash()
		sb.WriteByte('{')
		first := true
		h.each(func(k, val Value) {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			g.inspect(sb, k, depth+1)
			sb.WriteString("=>")
			g.inspect(sb, val, depth+1)
		})
		sb.WriteByte('}')
	case ObjClass, ObjModule:
		name := g.ClassName(v)
		if name == "" {
			name = "#<Class:" + strconv.FormatUint(uint64(v.Ref()), 10) + ">"
		}
		sb.WriteString(name)
	case ObjRegexp:
		sb.WriteString("/" + obj.AsRegexp().Source + "/")
	case ObjMethod:
		m := obj.AsMethod()
		sb.WriteString("#<Method: " + g.ClassName(g.SearchClass(m.Receiver)) + "#" + g.Idents.Name(m.Name) + ">")
	case ObjProc:
		sb.WriteString("#<Proc:" + strconv.FormatUint(uint64(v.Ref()), 10) + ">")
	case ObjSplat:
		inner, _ := obj.SplatValue()
		sb.WriteByte('*')
		g.inspect(sb, inner, depth+1)
	default:
		sb.WriteString("#<" + g.ClassName(g.SearchClass(v)) + ">")
	}
}
