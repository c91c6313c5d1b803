package wasm

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"
)

// ModuleBuilder assembles a core module whose imports, globals and export
// list are chosen at run time. Imported functions come first in the
// function index space, imported globals first in the global index space.
type ModuleBuilder struct {
	funcs   []funcImport
	globals []global
	start   int
}

type funcImport struct {
	moduleName string
	importName string
	exportName string
	params     []api.ValueType
	results    []api.ValueType
}

type global struct {
	moduleName string
	importName string
	exportName string
	valType    api.ValueType
	mutable    bool
	isLocal    bool
	initBits   uint64
}

// NewModuleBuilder creates an empty builder.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{start: -1}
}

// ImportFunc imports moduleName.importName and returns its function index.
// A non-empty exportName re-exports the import under that name.
func (b *ModuleBuilder) ImportFunc(moduleName, importName, exportName string, params, results []api.ValueType) int {
	b.funcs = append(b.funcs, funcImport{
		moduleName: moduleName,
		importName: importName,
		exportName: exportName,
		params:     params,
		results:    results,
	})
	return len(b.funcs) - 1
}

// ImportGlobal imports a global. A non-empty exportName re-exports it.
func (b *ModuleBuilder) ImportGlobal(moduleName, importName, exportName string, valType api.ValueType, mutable bool) {
	b.globals = append(b.globals, global{
		moduleName: moduleName,
		importName: importName,
		exportName: exportName,
		valType:    valType,
		mutable:    mutable,
	})
}

// DefineGlobal defines a global initialized from initBits, the value in
// wazero's uint64 encoding (api.EncodeI32, api.EncodeF64, ...).
// A non-empty exportName exports it.
func (b *ModuleBuilder) DefineGlobal(exportName string, valType api.ValueType, mutable bool, initBits uint64) {
	b.globals = append(b.globals, global{
		exportName: exportName,
		valType:    valType,
		mutable:    mutable,
		isLocal:    true,
		initBits:   initBits,
	})
}

// StartWith makes the module's start function call the imported function
// funcIdx, which must take no parameters and return nothing.
func (b *ModuleBuilder) StartWith(funcIdx int) {
	b.start = funcIdx
}

func (b *ModuleBuilder) hasStart() bool {
	return b.start >= 0 && b.start < len(b.funcs)
}

// Build generates the module bytes.
func (b *ModuleBuilder) Build() []byte {
	wasm := append([]byte(nil), header...)

	if types := b.buildTypeSection(); types != nil {
		wasm = appendSection(wasm, sectionType, types)
	}
	if imports := b.buildImportSection(); imports != nil {
		wasm = appendSection(wasm, sectionImport, imports)
	}
	if b.hasStart() {
		// One defined function, of the trailing () -> () type.
		funcs := append(EncodeULEB128(1), EncodeULEB128(uint32(len(b.funcs)))...)
		wasm = appendSection(wasm, sectionFunction, funcs)
	}
	if globals := b.buildGlobalSection(); globals != nil {
		wasm = appendSection(wasm, sectionGlobal, globals)
	}
	wasm = appendSection(wasm, sectionExport, b.buildExportSection())
	if b.hasStart() {
		wasm = appendSection(wasm, sectionStart, EncodeULEB128(uint32(len(b.funcs))))
		wasm = appendSection(wasm, sectionCode, b.buildCodeSection())
	}
	return wasm
}

func (b *ModuleBuilder) buildTypeSection() []byte {
	n := len(b.funcs)
	if b.hasStart() {
		n++
	}
	if n == 0 {
		return nil
	}

	section := EncodeULEB128(uint32(n))
	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, EncodeULEB128(uint32(len(f.params)))...)
		for _, t := range f.params {
			section = append(section, ValTypeToWasm(t))
		}
		section = append(section, EncodeULEB128(uint32(len(f.results)))...)
		for _, t := range f.results {
			section = append(section, ValTypeToWasm(t))
		}
	}
	if b.hasStart() {
		section = append(section, 0x60, 0x00, 0x00)
	}
	return section
}

func (b *ModuleBuilder) countGlobals(local bool) int {
	count := 0
	for _, g := range b.globals {
		if g.isLocal == local {
			count++
		}
	}
	return count
}

func (b *ModuleBuilder) buildImportSection() []byte {
	n := len(b.funcs) + b.countGlobals(false)
	if n == 0 {
		return nil
	}

	section := EncodeULEB128(uint32(n))
	for i, f := range b.funcs {
		section = appendName(section, f.moduleName)
		section = appendName(section, f.importName)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	for _, g := range b.globals {
		if g.isLocal {
			continue
		}
		section = appendName(section, g.moduleName)
		section = appendName(section, g.importName)
		section = append(section, 0x03, ValTypeToWasm(g.valType))
		section = appendMutability(section, g.mutable)
	}
	return section
}

func (b *ModuleBuilder) buildGlobalSection() []byte {
	n := b.countGlobals(true)
	if n == 0 {
		return nil
	}

	section := EncodeULEB128(uint32(n))
	for _, g := range b.globals {
		if !g.isLocal {
			continue
		}
		section = append(section, ValTypeToWasm(g.valType))
		section = appendMutability(section, g.mutable)
		section = appendConst(section, g.valType, g.initBits)
		section = append(section, 0x0B)
	}
	return section
}

func appendConst(dst []byte, t api.ValueType, bits uint64) []byte {
	switch t {
	case api.ValueTypeI64:
		dst = append(dst, 0x42)
		return append(dst, EncodeSLEB128(int64(bits))...)
	case api.ValueTypeF32:
		dst = append(dst, 0x43)
		return binary.LittleEndian.AppendUint32(dst, uint32(bits))
	case api.ValueTypeF64:
		dst = append(dst, 0x44)
		return binary.LittleEndian.AppendUint64(dst, bits)
	default:
		dst = append(dst, 0x41)
		return append(dst, EncodeSLEB128(int32(uint32(bits)))...)
	}
}

func (b *ModuleBuilder) buildExportSection() []byte {
	var entries []byte
	count := 0

	importedIdx := 0
	localIdx := b.countGlobals(false)
	for _, g := range b.globals {
		idx := importedIdx
		if g.isLocal {
			idx = localIdx
			localIdx++
		} else {
			importedIdx++
		}
		if g.exportName == "" {
			continue
		}
		entries = appendName(entries, g.exportName)
		entries = append(entries, 0x03)
		entries = append(entries, EncodeULEB128(uint32(idx))...)
		count++
	}

	for i, f := range b.funcs {
		if f.exportName == "" {
			continue
		}
		entries = appendName(entries, f.exportName)
		entries = append(entries, 0x00)
		entries = append(entries, EncodeULEB128(uint32(i))...)
		count++
	}

	return append(EncodeULEB128(uint32(count)), entries...)
}

func (b *ModuleBuilder) buildCodeSection() []byte {
	// No locals, call the start target, end.
	body := []byte{0x00, 0x10}
	body = append(body, EncodeULEB128(uint32(b.start))...)
	body = append(body, 0x0b)

	section := EncodeULEB128(1)
	section = append(section, EncodeULEB128(uint32(len(body)))...)
	return append(section, body...)
}
