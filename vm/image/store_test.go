package image

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/garnet/vm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "images.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t)
	g := vm.NewGlobals()
	p, err := Build(g, greetProgram(g))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("greet", p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get("greet")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Methods) != len(p.Methods) || got.Entry != p.Entry {
		t.Errorf("Get returned %d methods, entry %d; want %d, %d",
			len(got.Methods), got.Entry, len(p.Methods), p.Entry)
	}
	if _, err := Load(vm.NewGlobals(), got); err != nil {
		t.Errorf("Load of stored image: %v", err)
	}
}

func TestStoreReplaceAndList(t *testing.T) {
	s := openTestStore(t)
	g := vm.NewGlobals()
	small, err := Build(g, vm.NewISeqBuilder(g, "main").Emit(vm.OpPushNil).Emit(vm.OpEnd).Build())
	if err != nil {
		t.Fatal(err)
	}
	big, err := Build(g, greetProgram(g))
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"b", "a"} {
		if err := s.Put(name, small); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Put("a", big); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a" || entries[1].Name != "b" {
		t.Fatalf("List = %+v", entries)
	}
	if entries[0].Size <= entries[1].Size {
		t.Errorf("replaced image size %d not larger than %d", entries[0].Size, entries[1].Size)
	}
}

func TestStoreMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if err := s.Delete("nope"); err != nil {
		t.Errorf("Delete of a missing image: %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	g := vm.NewGlobals()
	p, err := Build(g, vm.NewISeqBuilder(g, "main").PushFixnum(1).Emit(vm.OpEnd).Build())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("x", p); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("x"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
}
