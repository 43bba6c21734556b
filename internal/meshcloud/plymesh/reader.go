package plymesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Row holds one decoded element row. Scalars and Lists are indexed by
// property position; only the slot matching the property kind is set.
type Row struct {
	Scalars []float64
	Lists   [][]float64
}

// Reader decodes element rows after the header, in file order.
type Reader struct {
	hdr *Header
	dec decoder
}

type decoder interface {
	value(t ScalarType) (float64, error)
}

// NewReader parses the header of r and prepares to decode its body.
func NewReader(r io.Reader) (*Reader, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 1<<20)
	}
	hdr, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	rd := &Reader{hdr: hdr}
	switch hdr.Format {
	case ASCII:
		rd.dec = &asciiDecoder{br: br}
	case BinaryLittleEndian:
		rd.dec = &binaryDecoder{br: br, order: binary.LittleEndian}
	case BinaryBigEndian:
		rd.dec = &binaryDecoder{br: br, order: binary.BigEndian}
	}
	return rd, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header { return r.hdr }

// ReadRow decodes the next row of e into row, reusing its storage.
func (r *Reader) ReadRow(e *Element, row *Row) error {
	n := len(e.Properties)
	if cap(row.Scalars) < n {
		row.Scalars = make([]float64, n)
		row.Lists = make([][]float64, n)
	}
	row.Scalars = row.Scalars[:n]
	row.Lists = row.Lists[:n]

	for i, p := range e.Properties {
		if !p.IsList {
			v, err := r.dec.value(p.Type)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", e.Name, p.Name, err)
			}
			row.Scalars[i] = v
			continue
		}
		c, err := r.dec.value(p.CountType)
		if err != nil {
			return fmt.Errorf("%s.%s count: %w", e.Name, p.Name, err)
		}
		if c < 0 || c != math.Trunc(c) {
			return fmt.Errorf("%s.%s: bad list length %g", e.Name, p.Name, c)
		}
		items := row.Lists[i][:0]
		for k := 0; k < int(c); k++ {
			v, err := r.dec.value(p.Type)
			if err != nil {
				return fmt.Errorf("%s.%s[%d]: %w", e.Name, p.Name, k, err)
			}
			items = append(items, v)
		}
		row.Lists[i] = items
	}
	return nil
}

// SkipElement decodes and discards every row of e.
func (r *Reader) SkipElement(e *Element) error {
	var row Row
	for i := 0; i < e.Count; i++ {
		if err := r.ReadRow(e, &row); err != nil {
			return err
		}
	}
	return nil
}

type binaryDecoder struct {
	br    *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (d *binaryDecoder) value(t ScalarType) (float64, error) {
	b := d.buf[:t.Size()]
	if _, err := io.ReadFull(d.br, b); err != nil {
		return 0, err
	}
	switch t {
	case Int8:
		return float64(int8(b[0])), nil
	case Uint8:
		return float64(b[0]), nil
	case Int16:
		return float64(int16(d.order.Uint16(b))), nil
	case Uint16:
		return float64(d.order.Uint16(b)), nil
	case Int32:
		return float64(int32(d.order.Uint32(b))), nil
	case Uint32:
		return float64(d.order.Uint32(b)), nil
	case Float32:
		return float64(math.Float32frombits(d.order.Uint32(b))), nil
	case Float64:
		return math.Float64frombits(d.order.Uint64(b)), nil
	}
	return 0, fmt.Errorf("unsupported type %d", t)
}

type asciiDecoder struct {
	br  *bufio.Reader
	tok []byte
}

func (d *asciiDecoder) value(t ScalarType) (float64, error) {
	tok, err := d.token()
	if err != nil {
		return 0, err
	}
	switch t {
	case Float32, Float64:
		return strconv.ParseFloat(tok, 64)
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

func (d *asciiDecoder) token() (string, error) {
	d.tok = d.tok[:0]
	for {
		c, err := d.br.ReadByte()
		if err != nil {
			if err == io.EOF && len(d.tok) > 0 {
				return string(d.tok), nil
			}
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			if len(d.tok) > 0 {
				return string(d.tok), nil
			}
			continue
		}
		d.tok = append(d.tok, c)
	}
}
