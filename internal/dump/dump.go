// Package dump implements binary serialization of compiled function
// prototypes (spec.md §5), ported from the reference implementation's
// cdump.c/cundump.c.
package dump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cosmolang/cosmo/internal/chunk"
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
)

// magic identifies a Cosmo dump file; version guards against incompatible
// layout changes the way cdump.c's header guards against a mismatched
// sizeof(cosmo_Number)/sizeof(size_t) build.
var magic = [4]byte{'C', 'S', 'M', 'O'}

const formatVersion = 1

// ErrBadHeader is returned by Undump when the magic/version header doesn't
// match, mirroring cundump.c's checkHeader's "bad header!" rejection.
var ErrBadHeader = errors.New("dump: bad header")

const (
	valNil byte = iota
	valBool
	valNumber
	valString
	valFunction
)

// Dump serializes fn (and, recursively, every Function reachable through
// its constant pool) to w.
func Dump(w io.Writer, fn *object.Function) error {
	bw := &byteWriter{w: w}

	bw.write(magic[:])
	bw.writeU8(formatVersion)

	writeFunction(bw, fn)

	return bw.err
}

// Undump reads a prototype previously written by Dump. interner is used to
// rebuild interned string constants against the destination VM's pool
// (typically vm.State.NewString), matching the reference's rule that
// undumped strings still go through the normal interning path.
func Undump(r io.Reader, interner func([]byte) *object.String) (*object.Function, error) {
	br := &byteReader{r: r}

	var hdr [4]byte
	br.read(hdr[:])

	if !bytes.Equal(hdr[:], magic[:]) {
		return nil, ErrBadHeader
	}

	version := br.readU8()

	if br.err != nil {
		return nil, fmt.Errorf("dump: %w", br.err)
	}

	if version != formatVersion {
		return nil, ErrBadHeader
	}

	fn := readFunction(br, interner)
	if br.err != nil {
		return nil, fmt.Errorf("dump: %w", br.err)
	}

	return fn, nil
}

func writeFunction(bw *byteWriter, fn *object.Function) {
	writeOptString(bw, fn.Name)
	writeOptString(bw, fn.Module)
	bw.writeU32(uint32(fn.Arity))
	bw.writeU32(uint32(fn.Upvals))
	bw.writeU8(boolByte(fn.Variadic))

	bw.writeU32(uint32(len(fn.UpvalDescs)))

	for _, d := range fn.UpvalDescs {
		bw.writeU8(byte(d.Kind))
		bw.writeU8(d.Index)
	}

	bw.writeU32(uint32(len(fn.Chunk.Code)))
	bw.write(fn.Chunk.Code)

	bw.writeU32(uint32(len(fn.Chunk.Lines)))

	for _, line := range fn.Chunk.Lines {
		bw.writeU32(uint32(line))
	}

	bw.writeU32(uint32(len(fn.Chunk.Constants)))

	for _, c := range fn.Chunk.Constants {
		writeValue(bw, c)
	}
}

func readFunction(br *byteReader, interner func([]byte) *object.String) *object.Function {
	fn := &object.Function{Chunk: chunk.New()}

	fn.Name = readOptString(br, interner)
	fn.Module = readOptString(br, interner)
	fn.Arity = int(br.readU32())
	fn.Upvals = int(br.readU32())
	fn.Variadic = br.readU8() != 0

	descCount := br.readU32()
	fn.UpvalDescs = make([]object.UpvalDesc, descCount)

	for i := range fn.UpvalDescs {
		fn.UpvalDescs[i] = object.UpvalDesc{
			Kind:  chunk.UpvalKind(br.readU8()),
			Index: br.readU8(),
		}
	}

	codeLen := br.readU32()
	fn.Chunk.Code = make([]byte, codeLen)
	br.read(fn.Chunk.Code)

	lineLen := br.readU32()
	fn.Chunk.Lines = make([]int, lineLen)

	for i := range fn.Chunk.Lines {
		fn.Chunk.Lines[i] = int(br.readU32())
	}

	constLen := br.readU32()
	fn.Chunk.Constants = make([]value.Value, constLen)

	for i := range fn.Chunk.Constants {
		fn.Chunk.Constants[i] = readValue(br, interner)
	}

	return fn
}

func writeOptString(bw *byteWriter, s *object.String) {
	if s == nil {
		bw.writeU8(0)

		return
	}

	bw.writeU8(1)
	writeBytes(bw, s.Bytes())
}

func readOptString(br *byteReader, interner func([]byte) *object.String) *object.String {
	present := br.readU8()
	if present == 0 {
		return nil
	}

	return interner(readBytes(br))
}

func writeBytes(bw *byteWriter, b []byte) {
	bw.writeU32(uint32(len(b)))
	bw.write(b)
}

func readBytes(br *byteReader) []byte {
	n := br.readU32()
	b := make([]byte, n)
	br.read(b)

	return b
}

func writeValue(bw *byteWriter, v value.Value) {
	switch {
	case v.IsNil():
		bw.writeU8(valNil)
	case v.IsBool():
		bw.writeU8(valBool)
		bw.writeU8(boolByte(v.AsBool()))
	case v.IsNumber():
		bw.writeU8(valNumber)
		bw.writeF64(v.AsNumber())
	case v.IsRefKind(value.RefString):
		bw.writeU8(valString)
		writeBytes(bw, v.AsRef().(*object.String).Bytes())
	case v.IsRefKind(value.RefFunction):
		bw.writeU8(valFunction)
		writeFunction(bw, v.AsRef().(*object.Function))
	default:
		bw.err = fmt.Errorf("dump: constant pool may only hold nil/bool/number/string/function, got %s", value.TypeName(v))
	}
}

func readValue(br *byteReader, interner func([]byte) *object.String) value.Value {
	switch br.readU8() {
	case valNil:
		return value.Nil
	case valBool:
		return value.Bool(br.readU8() != 0)
	case valNumber:
		return value.Number(br.readF64())
	case valString:
		return value.FromRef(interner(readBytes(br)))
	case valFunction:
		return value.FromRef(readFunction(br, interner))
	default:
		br.err = fmt.Errorf("dump: unknown constant tag")

		return value.Nil
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}

	return 0
}

type byteWriter struct {
	w   io.Writer
	err error
}

func (bw *byteWriter) write(b []byte) {
	if bw.err != nil {
		return
	}

	_, bw.err = bw.w.Write(b)
}

func (bw *byteWriter) writeU8(b byte)  { bw.write([]byte{b}) }
func (bw *byteWriter) writeU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	bw.write(buf[:])
}

func (bw *byteWriter) writeF64(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	bw.write(buf[:])
}

type byteReader struct {
	r   io.Reader
	err error
}

func (br *byteReader) read(b []byte) {
	if br.err != nil {
		return
	}

	_, br.err = io.ReadFull(br.r, b)
}

func (br *byteReader) readU8() byte {
	var buf [1]byte
	br.read(buf[:])

	return buf[0]
}

func (br *byteReader) readU32() uint32 {
	var buf [4]byte
	br.read(buf[:])

	return binary.LittleEndian.Uint32(buf[:])
}

func (br *byteReader) readF64() float64 {
	var buf [8]byte
	br.read(buf[:])

	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
}
