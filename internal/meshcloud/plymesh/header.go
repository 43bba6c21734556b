// Package plymesh reads Stanford PLY files, in particular the semantic
// meshes whose faces carry the id of the object they belong to.
package plymesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format is the body encoding declared in the header.
type Format int

const (
	ASCII Format = iota
	BinaryLittleEndian
	BinaryBigEndian
)

func (f Format) String() string {
	switch f {
	case ASCII:
		return "ascii"
	case BinaryLittleEndian:
		return "binary_little_endian"
	case BinaryBigEndian:
		return "binary_big_endian"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ScalarType is a PLY property type.
type ScalarType int

const (
	Int8 ScalarType = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var scalarNames = map[string]ScalarType{
	"char": Int8, "int8": Int8,
	"uchar": Uint8, "uint8": Uint8,
	"short": Int16, "int16": Int16,
	"ushort": Uint16, "uint16": Uint16,
	"int": Int32, "int32": Int32,
	"uint": Uint32, "uint32": Uint32,
	"float": Float32, "float32": Float32,
	"double": Float64, "float64": Float64,
}

// Size returns the encoded width in bytes.
func (t ScalarType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// Property is one column of an element. List properties have a count
// type and an item type.
type Property struct {
	Name      string
	Type      ScalarType
	IsList    bool
	CountType ScalarType
}

// Element is a named block of Count rows.
type Element struct {
	Name       string
	Count      int
	Properties []Property
}

// Index returns the position of the named property, or -1.
func (e *Element) Index(name string) int {
	for i, p := range e.Properties {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Header describes a PLY file.
type Header struct {
	Format   Format
	Version  string
	Comments []string
	Elements []Element
}

// Element returns the named element, or nil.
func (h *Header) Element(name string) *Element {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// ReadHeader consumes the header through the end_header line.
func ReadHeader(br *bufio.Reader) (*Header, error) {
	magic, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != "ply" {
		return nil, fmt.Errorf("not a PLY file: first line %q", magic)
	}

	h := &Header{}
	sawFormat := false
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("header truncated: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) != 3 {
				return nil, fmt.Errorf("bad format line %q", line)
			}
			switch fields[1] {
			case "ascii":
				h.Format = ASCII
			case "binary_little_endian":
				h.Format = BinaryLittleEndian
			case "binary_big_endian":
				h.Format = BinaryBigEndian
			default:
				return nil, fmt.Errorf("unknown format %q", fields[1])
			}
			h.Version = fields[2]
			sawFormat = true
		case "comment", "obj_info":
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("bad element line %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("bad element count in %q", line)
			}
			h.Elements = append(h.Elements, Element{Name: fields[1], Count: n})
		case "property":
			if len(h.Elements) == 0 {
				return nil, fmt.Errorf("property before any element: %q", line)
			}
			p, err := parseProperty(fields)
			if err != nil {
				return nil, fmt.Errorf("%w in %q", err, line)
			}
			e := &h.Elements[len(h.Elements)-1]
			e.Properties = append(e.Properties, p)
		case "end_header":
			if !sawFormat {
				return nil, fmt.Errorf("header has no format line")
			}
			return h, nil
		default:
			return nil, fmt.Errorf("unknown header keyword %q", fields[0])
		}
	}
}

func parseProperty(fields []string) (Property, error) {
	if len(fields) >= 5 && fields[1] == "list" {
		ct, ok := scalarNames[fields[2]]
		if !ok {
			return Property{}, fmt.Errorf("unknown count type %q", fields[2])
		}
		it, ok := scalarNames[fields[3]]
		if !ok {
			return Property{}, fmt.Errorf("unknown item type %q", fields[3])
		}
		return Property{Name: fields[4], Type: it, IsList: true, CountType: ct}, nil
	}
	if len(fields) != 3 {
		return Property{}, fmt.Errorf("bad property")
	}
	t, ok := scalarNames[fields[1]]
	if !ok {
		return Property{}, fmt.Errorf("unknown type %q", fields[1])
	}
	return Property{Name: fields[2], Type: t}, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
