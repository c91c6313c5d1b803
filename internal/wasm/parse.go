package wasm

import (
	"bytes"
	"fmt"
)

// ExternKind is the kind of an exported item.
type ExternKind byte

const (
	KindFunc   ExternKind = 0x00
	KindTable  ExternKind = 0x01
	KindMemory ExternKind = 0x02
	KindGlobal ExternKind = 0x03
)

func (k ExternKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	default:
		return fmt.Sprintf("kind(0x%02x)", byte(k))
	}
}

// Export is one entry of a module's export section.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// ParseExports returns the export section entries of a core module in
// declaration order.
func ParseExports(wasmBytes []byte) ([]Export, error) {
	if len(wasmBytes) < len(header) || !bytes.Equal(wasmBytes[:4], header[:4]) {
		return nil, fmt.Errorf("not a wasm module")
	}

	r := &reader{data: wasmBytes, pos: len(header)}
	for r.pos < len(r.data) {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.uleb()
		if err != nil {
			return nil, err
		}
		end := r.pos + int(size)
		if end > len(r.data) {
			return nil, fmt.Errorf("section 0x%02x overruns module", id)
		}
		if id != sectionExport {
			r.pos = end
			continue
		}
		return parseExportSection(&reader{data: r.data[:end], pos: r.pos})
	}
	return nil, nil
}

func parseExportSection(r *reader) ([]Export, error) {
	count, err := r.uleb()
	if err != nil {
		return nil, err
	}
	exports := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.name()
		if err != nil {
			return nil, fmt.Errorf("export %d: %w", i, err)
		}
		kind, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("export %q: %w", name, err)
		}
		idx, err := r.uleb()
		if err != nil {
			return nil, fmt.Errorf("export %q: %w", name, err)
		}
		exports = append(exports, Export{Name: name, Kind: ExternKind(kind), Index: idx})
	}
	return exports, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end of data at %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) uleb() (uint32, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end of data at %d", r.pos)
	}
	v, n := DecodeULEB128(r.data[r.pos:])
	r.pos += n
	return v, nil
}

func (r *reader) name() (string, error) {
	n, err := r.uleb()
	if err != nil {
		return "", err
	}
	end := r.pos + int(n)
	if end > len(r.data) {
		return "", fmt.Errorf("name overruns section at %d", r.pos)
	}
	s := string(r.data[r.pos:end])
	r.pos = end
	return s, nil
}
