package script

import (
	"context"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/wavestorm/internal/engine/sequence"
)

// MaxGenerated caps the samples a fill or Lua source may produce.
const MaxGenerated = 1 << 24

// SampleSpec describes sample data in one of three ways: literal values,
// count copies of a fill value, or count results of a Lua expression.
type SampleSpec struct {
	Values []int32 `yaml:"values"`
	Count  uint64  `yaml:"count"`
	Fill   *int32  `yaml:"fill"`

	// Lua is an expression evaluated once per sample with i bound to the
	// sample index and n to the count.
	Lua string `yaml:"lua"`
}

func (s SampleSpec) validate() error {
	kinds := 0
	if len(s.Values) > 0 {
		kinds++
	}
	if s.Fill != nil {
		kinds++
	}
	if s.Lua != "" {
		kinds++
	}
	switch {
	case kinds == 0:
		return fmt.Errorf("samples need values, fill or lua: %w", ErrInvalidScript)
	case kinds > 1:
		return fmt.Errorf("samples take only one of values, fill or lua: %w", ErrInvalidScript)
	case len(s.Values) == 0 && s.Count == 0:
		return fmt.Errorf("samples need a count: %w", ErrInvalidScript)
	case s.Count > MaxGenerated:
		return fmt.Errorf("count %d exceeds %d: %w", s.Count, MaxGenerated, ErrInvalidScript)
	}
	return nil
}

// Resolve produces the samples s describes.
func (s SampleSpec) Resolve(ctx context.Context, gen *Generator) ([]sequence.Sample, error) {
	switch {
	case len(s.Values) > 0:
		out := make([]sequence.Sample, len(s.Values))
		for i, v := range s.Values {
			out[i] = sequence.Sample(v)
		}
		return out, nil
	case s.Fill != nil:
		out := make([]sequence.Sample, s.Count)
		for i := range out {
			out[i] = sequence.Sample(*s.Fill)
		}
		return out, nil
	default:
		return gen.Generate(ctx, s.Lua, s.Count)
	}
}

// Generator evaluates Lua sample expressions in a state limited to the
// base and math libraries.
type Generator struct {
	L *lua.LState
}

// NewGenerator creates a generator. Close it when done.
func NewGenerator() *Generator {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	lua.OpenBase(L)
	lua.OpenMath(L)

	// No code loading from inside expressions
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &Generator{L: L}
}

// Close releases the Lua state.
func (g *Generator) Close() {
	g.L.Close()
}

// Generate evaluates expr for i in [0, n). Results are rounded toward zero
// and clamped to the sample range. ctx bounds the evaluation.
func (g *Generator) Generate(ctx context.Context, expr string, n uint64) (out []sequence.Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v: %w", r, ErrGenerator)
		}
	}()

	fn, err := g.L.LoadString("return " + expr)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %v: %w", expr, err, ErrGenerator)
	}

	g.L.SetContext(ctx)
	defer g.L.RemoveContext()

	g.L.SetGlobal("n", lua.LNumber(n))
	out = make([]sequence.Sample, n)
	for i := range out {
		g.L.SetGlobal("i", lua.LNumber(i))
		g.L.Push(fn)
		if err := g.L.PCall(0, 1, nil); err != nil {
			return nil, fmt.Errorf("evaluate %q at %d: %v: %w", expr, i, err, ErrGenerator)
		}
		v := g.L.Get(-1)
		g.L.Pop(1)

		num, ok := v.(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("%q yields %s at %d, want number: %w", expr, v.Type(), i, ErrGenerator)
		}
		out[i] = clampSample(float64(num))
	}
	return out, nil
}

func clampSample(f float64) sequence.Sample {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return sequence.Sample(f)
	}
}
