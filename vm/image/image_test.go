package image

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/garnet/vm"
)

// greetProgram builds: class C; def greet; "hi " + name; end; end
// followed by puts(C.new.greet("bob")).
func greetProgram(g *vm.Globals) *vm.ISeq {
	greet := vm.NewISeqBuilder(g, "greet").Params(1, 0, false, 0).
		PushString("hi ").GetLocal(0).Emit(vm.OpConcatString).Emit(vm.OpEnd).BuildMethod()
	body := vm.NewISeqBuilder(g, "C").DefMethod("greet", greet).Emit(vm.OpEnd).BuildMethod()
	return vm.NewISeqBuilder(g, "main").
		DefClass("C", body).Emit(vm.OpPop).
		PushString("bob").GetConst("C").Send("new", 0).Send("greet", 1).
		Emit(vm.OpPushSelf).Send("puts", 1).
		Emit(vm.OpEnd).Build()
}

func TestBuildLoadRun(t *testing.T) {
	src := vm.NewGlobals()
	entry := greetProgram(src)

	p, err := Build(src, entry)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Methods[p.Entry].Name != "main" {
		t.Errorf("entry method = %q, want main", p.Methods[p.Entry].Name)
	}

	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	loaded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	// Interning an extra name first shifts every identifier ID, so
	// the loader has to rewrite operands.
	dst := vm.NewGlobals()
	dst.Idents.Intern("padding")
	iseq, err := Load(dst, loaded)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var out bytes.Buffer
	config := vm.DefaultConfig()
	config.Output = &out
	machine := vm.New(dst, config)
	if _, err := machine.Run(iseq); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "hi bob\n" {
		t.Errorf("output = %q, want %q", out.String(), "hi bob\n")
	}
}

func TestMarshalIsCanonical(t *testing.T) {
	g := vm.NewGlobals()
	p, err := Build(g, greetProgram(g))
	if err != nil {
		t.Fatal(err)
	}
	a, err := Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two encodings of the same program differ")
	}
}

func TestEntryAlreadyInStore(t *testing.T) {
	g := vm.NewGlobals()
	ref := vm.NewISeqBuilder(g, "main").PushFixnum(1).Emit(vm.OpEnd).BuildMethod()
	p, err := Build(g, g.Method(ref).ISeq)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Methods) != 1 || p.Entry != 0 {
		t.Errorf("methods = %d, entry = %d; want 1, 0", len(p.Methods), p.Entry)
	}
}

func TestVersionMismatch(t *testing.T) {
	data, err := Marshal(&Program{Version: Version + 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("Unmarshal error = %v, want version mismatch", err)
	}
	if _, err := Load(vm.NewGlobals(), &Program{Version: 0}); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("Load error = %v, want version mismatch", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("Unmarshal accepted garbage")
	}
}

func TestLoadRejectsBadOperands(t *testing.T) {
	g := vm.NewGlobals()
	tests := []struct {
		name string
		p    *Program
	}{
		{"entry out of range", &Program{Version: Version, Entry: 2}},
		{"ident out of range", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpGetConst), 0, 0, 0, 9, byte(vm.OpEnd)}},
		}}},
		{"method out of range", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpCreateProc), 0, 0, 0, 3, byte(vm.OpEnd)}},
		}}},
		{"local out of range", &Program{Version: Version, Methods: []Method{
			{Name: "m", Lvars: 1, Code: []byte{byte(vm.OpGetLocal), 0, 0, 0, 1, byte(vm.OpEnd)}},
		}}},
		{"truncated code", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpPushFixnum), 0}},
		}}},
		{"too few locals", &Program{Version: Version, Methods: []Method{
			{Name: "m", Req: 2, Lvars: 1, Code: []byte{byte(vm.OpPushNil), byte(vm.OpEnd)}},
		}}},
		{"jump past end", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpJmp), 0, 0, 0, 10, byte(vm.OpPushNil), byte(vm.OpEnd)}},
		}}},
		{"jump before start", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpPushNil), byte(vm.OpJmp), 0xff, 0xff, 0xff, 0xf0, byte(vm.OpEnd)}},
		}}},
		{"jump into operand", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpJmp), 0, 0, 0, 1,
				byte(vm.OpPushFixnum), 0, 0, 0, 0, 0, 0, 0, 1, byte(vm.OpEnd)}},
		}}},
		{"dynamic local without enclosing method", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpGetDynLocal), 0, 0, 0, 0, 0, 0, 0, 1, byte(vm.OpEnd)}},
		}}},
		{"dynamic local out of range", &Program{Version: Version, Methods: []Method{
			{Name: "main", Lvars: 1, Code: []byte{byte(vm.OpCreateProc), 0, 0, 0, 1, byte(vm.OpEnd)}},
			{Name: "block", Code: []byte{byte(vm.OpGetDynLocal), 0, 0, 0, 3, 0, 0, 0, 1, byte(vm.OpEnd)}},
		}}},
		{"dynamic local too deep", &Program{Version: Version, Methods: []Method{
			{Name: "m", Code: []byte{byte(vm.OpGetDynLocal), 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, byte(vm.OpEnd)}},
		}}},
	}
	for _, tt := range tests {
		_, err := Load(g, tt.p)
		if err == nil {
			t.Errorf("%s: Load succeeded", tt.name)
			continue
		}
		if tt.name != "truncated code" && !errors.Is(err, ErrInvalidImage) {
			t.Errorf("%s: error = %v, want ErrInvalidImage", tt.name, err)
		}
	}
}

func TestLoadClosureProgram(t *testing.T) {
	src := vm.NewGlobals()
	// n = 41; proc { n + 1 }.call
	incr := vm.NewISeqBuilder(src, "block").
		GetDynLocal(0, 1).PushFixnum(1).Emit(vm.OpAdd).Emit(vm.OpEnd).BuildMethod()
	loop := vm.NewISeqBuilder(src, "main").Lvars(1)
	done := loop.NewLabel()
	entry := loop.
		PushFixnum(41).SetLocal(0).Emit(vm.OpPop).
		Emit(vm.OpPushTrue).Jump(vm.OpJmpIfFalse, done).
		CreateProc(incr).Send("call", 0).Emit(vm.OpEnd).
		Mark(done).Emit(vm.OpPushNil).Emit(vm.OpEnd).Build()

	p, err := Build(src, entry)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dst := vm.NewGlobals()
	iseq, err := Load(dst, p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := vm.New(dst, vm.DefaultConfig()).Run(iseq)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != vm.FromFixnum(42) {
		t.Errorf("result = %v, want 42", got)
	}
}

func TestNamesResolveByIndex(t *testing.T) {
	// A repeated name must not shift the indices that follow it.
	names := Names{"x", "x", "y"}
	code := []byte{byte(vm.OpGetConst), 0, 0, 0, 2, byte(vm.OpEnd)}
	if got := vm.Disassemble(code, names); !strings.Contains(got, "GET_CONST :y") {
		t.Errorf("listing = %q, want GET_CONST :y", got)
	}
	if got := names.Name(7); got != "<ident 7>" {
		t.Errorf("Name(7) = %q", got)
	}
}

func TestFileRoundTrip(t *testing.T) {
	g := vm.NewGlobals()
	p, err := Build(g, vm.NewISeqBuilder(g, "main").PushFixnum(5).Emit(vm.OpEnd).Build())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "prog.gimg")
	if err := WriteFile(path, p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got.Methods[got.Entry].Code, p.Methods[p.Entry].Code) {
		t.Error("entry code changed across the round trip")
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ReadFile of a missing file succeeded")
	}
}
