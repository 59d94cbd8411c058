// Package image reads and writes garnet program images.
//
// An image is a canonical CBOR document holding the identifier table,
// every interpreted method and the index of the entry method. Identifier
// operands in method code are indices into Idents; method operands are
// indices into Methods. Loading maps both onto the IDs of the target
// runtime.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/garnet/vm"
	"github.com/fxamacker/cbor/v2"
)

// Version is the current image format version.
const Version = 1

var (
	ErrVersionMismatch = errors.New("image version mismatch")
	ErrInvalidImage    = errors.New("invalid image")
)

// Program is a serialized program.
type Program struct {
	Version int      `cbor:"1,keyasint"`
	Idents  []string `cbor:"2,keyasint"`
	Methods []Method `cbor:"3,keyasint"`
	Entry   int      `cbor:"4,keyasint"`
}

// Method is one interpreted method.
type Method struct {
	Name  string `cbor:"1,keyasint"`
	Code  []byte `cbor:"2,keyasint"`
	Lvars int    `cbor:"3,keyasint"`
	Req   int    `cbor:"4,keyasint,omitempty"`
	Opt   int    `cbor:"5,keyasint,omitempty"`
	Rest  bool   `cbor:"6,keyasint,omitempty"`
	Post  int    `cbor:"7,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal serializes p. Equal programs always encode to equal bytes.
func Marshal(p *Program) ([]byte, error) {
	return encMode.Marshal(p)
}

// Unmarshal deserializes a program and checks its version.
func Unmarshal(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrVersionMismatch, Version, p.Version)
	}
	return &p, nil
}

// ReadFile loads a program from path.
func ReadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	return Unmarshal(data)
}

// WriteFile stores p at path.
func WriteFile(path string, p *Program) error {
	data, err := Marshal(p)
	if err != nil {
		return fmt.Errorf("image: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Names resolves identifier operands of code that has not been loaded,
// by index into the image's identifier list.
type Names []string

func (n Names) Name(id vm.IdentID) string {
	if int(id) < len(n) {
		return n[id]
	}
	return fmt.Sprintf("<ident %d>", id)
}
