package trace

import (
	"fmt"
	"math"

	"github.com/arloliu/hierfit/endian"
	"github.com/arloliu/hierfit/errs"
)

// sectionWriter appends length-prefixed fields to a byte slice.
type sectionWriter struct {
	buf    []byte
	engine endian.EndianEngine
	err    error
}

func (w *sectionWriter) putUint8(v uint8)     { w.buf = append(w.buf, v) }
func (w *sectionWriter) putUint16(v uint16)   { w.buf = w.engine.AppendUint16(w.buf, v) }
func (w *sectionWriter) putUint32(v uint32)   { w.buf = w.engine.AppendUint32(w.buf, v) }
func (w *sectionWriter) putUint64(v uint64)   { w.buf = w.engine.AppendUint64(w.buf, v) }
func (w *sectionWriter) putFloat64(v float64) { w.putUint64(math.Float64bits(v)) }

// putString writes [Len: uint16][UTF-8 bytes]. The first oversized string sets err.
func (w *sectionWriter) putString(s string) {
	if len(s) > maxStringLen {
		if w.err == nil {
			w.err = fmt.Errorf("%w: %d bytes, maximum %d", errs.ErrTextTooLong, len(s), maxStringLen)
		}
		return
	}
	w.putUint16(uint16(len(s))) //nolint: gosec
	w.buf = append(w.buf, s...)
}

// putStrings writes [Count: uint16] followed by each string.
func (w *sectionWriter) putStrings(list []string) {
	if !w.putCount(len(list)) {
		return
	}
	for _, s := range list {
		w.putString(s)
	}
}

func (w *sectionWriter) putCount(n int) bool {
	if n > maxListLen {
		if w.err == nil {
			w.err = fmt.Errorf("%w: list of %d entries, maximum %d", errs.ErrInvalidPayload, n, maxListLen)
		}
		return false
	}
	w.putUint16(uint16(n)) //nolint: gosec

	return true
}

// sectionReader consumes fields written by sectionWriter. After the first
// short read every accessor returns zero values and err is set.
type sectionReader struct {
	data   []byte
	off    int
	engine endian.EndianEngine
	err    error
}

func (r *sectionReader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: cannot read %s (need %d bytes at offset %d, have %d total)",
			errs.ErrInvalidPayload, what, n, r.off, len(r.data))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n

	return b
}

func (r *sectionReader) readUint8(what string) uint8 {
	if b := r.take(1, what); b != nil {
		return b[0]
	}

	return 0
}

func (r *sectionReader) readUint16(what string) uint16 {
	if b := r.take(2, what); b != nil {
		return r.engine.Uint16(b)
	}

	return 0
}

func (r *sectionReader) readUint32(what string) uint32 {
	if b := r.take(4, what); b != nil {
		return r.engine.Uint32(b)
	}

	return 0
}

func (r *sectionReader) readUint64(what string) uint64 {
	if b := r.take(8, what); b != nil {
		return r.engine.Uint64(b)
	}

	return 0
}

func (r *sectionReader) readFloat64(what string) float64 {
	return math.Float64frombits(r.readUint64(what))
}

func (r *sectionReader) readString(what string) string {
	n := r.readUint16(what + " length")
	if b := r.take(int(n), what); b != nil {
		return string(b)
	}

	return ""
}

func (r *sectionReader) readStrings(what string) []string {
	n := int(r.readUint16(what + " count"))
	if r.err != nil {
		return nil
	}
	list := make([]string, 0, n)
	for i := range n {
		list = append(list, r.readString(fmt.Sprintf("%s %d", what, i)))
	}

	return list
}
