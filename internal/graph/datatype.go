package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dataflow-compiler/pkg/errors"
)

// DataType describes the value carried on an arc: floating point or
// integer/fixed point, signedness, complexity, bit widths, and dimensions.
// A scalar has Dimensions {1}.  Equality is structural.
type DataType struct {
	Float          bool
	Signed         bool
	Complex        bool
	TotalBits      int
	FractionalBits int
	Dimensions     []int
}

// Common data types used for synthesized arcs.
var (
	// BoolType is the required type of enable ports and the default type of
	// order-constraint arcs.
	BoolType = DataType{TotalBits: 1, Dimensions: []int{1}}
	// Int32Type is the default type of select ports.
	Int32Type = DataType{Signed: true, TotalBits: 32, Dimensions: []int{1}}
	// DoubleType is a 64-bit float scalar.
	DoubleType = DataType{Float: true, Signed: true, TotalBits: 64, Dimensions: []int{1}}
)

// IsScalar reports whether the type has a single element.
func (d DataType) IsScalar() bool {
	return d.NumberOfElements() == 1
}

// IsBool reports whether the type is a 1-bit unsigned integer.
func (d DataType) IsBool() bool {
	return !d.Float && !d.Signed && d.TotalBits == 1
}

// NumberOfElements returns the element count across all dimensions.
func (d DataType) NumberOfElements() int {
	n := 1
	for _, dim := range d.Dimensions {
		n *= dim
	}
	return n
}

// Equals performs structural comparison.
func (d DataType) Equals(o DataType) bool {
	if d.Float != o.Float || d.Signed != o.Signed || d.Complex != o.Complex ||
		d.TotalBits != o.TotalBits || d.FractionalBits != o.FractionalBits ||
		len(d.Dimensions) != len(o.Dimensions) {
		return false
	}
	for i := range d.Dimensions {
		if d.Dimensions[i] != o.Dimensions[i] {
			return false
		}
	}
	return true
}

// EqualsIgnoringDimensions compares everything but the shape.
func (d DataType) EqualsIgnoringDimensions(o DataType) bool {
	a := d
	b := o
	a.Dimensions = []int{1}
	b.Dimensions = []int{1}
	return a.Equals(b)
}

// ExpandForBlockSize returns the type expanded by block size b: a scalar's
// {1} becomes {b}, a non-scalar gains b as its outermost dimension.
// Block size 1 returns the type unchanged.
func (d DataType) ExpandForBlockSize(b int) DataType {
	if b <= 1 {
		return d
	}
	out := d
	if d.IsScalar() {
		out.Dimensions = []int{b}
		return out
	}
	out.Dimensions = append([]int{b}, d.Dimensions...)
	return out
}

// ReduceForSubBlock is the inverse of ExpandForBlockSize: it strips an
// outermost dimension equal to b, or collapses {b} back to a scalar.
func (d DataType) ReduceForSubBlock(b int) (DataType, error) {
	if b <= 1 {
		return d, nil
	}
	if len(d.Dimensions) == 0 || d.Dimensions[0] != b {
		return DataType{}, errors.Newf(errors.CodeStructuralError,
			"cannot reduce type %s by sub-block %d", d.String(), b)
	}
	out := d
	if len(d.Dimensions) == 1 {
		out.Dimensions = []int{1}
		return out, nil
	}
	out.Dimensions = append([]int{}, d.Dimensions[1:]...)
	return out, nil
}

// String prints the scalar type portion in the GraphML surface syntax.
func (d DataType) String() string {
	switch {
	case d.Float && d.TotalBits == 32:
		return "single"
	case d.Float:
		return "double"
	case d.IsBool():
		return "boolean"
	case d.FractionalBits == 0 && d.Signed:
		return fmt.Sprintf("int%d", d.TotalBits)
	case d.FractionalBits == 0:
		return fmt.Sprintf("uint%d", d.TotalBits)
	case d.Signed:
		return fmt.Sprintf("sfix%d_En%d", d.TotalBits, d.FractionalBits)
	default:
		return fmt.Sprintf("ufix%d_En%d", d.TotalBits, d.FractionalBits)
	}
}

// ParseDataType parses the scalar type syntax of the GraphML surface:
// single, double, boolean, int8..int64, uint8..uint64, sfixN_EnM, ufixN_EnM,
// and fixdt(s,N,M).  The result is a scalar; callers apply dimensions.
func ParseDataType(s string) (DataType, error) {
	s = strings.TrimSpace(s)
	scalar := []int{1}

	switch s {
	case "single":
		return DataType{Float: true, Signed: true, TotalBits: 32, Dimensions: scalar}, nil
	case "double":
		return DataType{Float: true, Signed: true, TotalBits: 64, Dimensions: scalar}, nil
	case "boolean", "bool":
		return DataType{TotalBits: 1, Dimensions: scalar}, nil
	}

	if rest, ok := strings.CutPrefix(s, "int"); ok {
		bits, err := strconv.Atoi(rest)
		if err != nil {
			return DataType{}, errors.Newf(errors.CodeParseError, "unparseable type string %q", s)
		}
		return DataType{Signed: true, TotalBits: bits, Dimensions: scalar}, nil
	}
	if rest, ok := strings.CutPrefix(s, "uint"); ok {
		bits, err := strconv.Atoi(rest)
		if err != nil {
			return DataType{}, errors.Newf(errors.CodeParseError, "unparseable type string %q", s)
		}
		return DataType{TotalBits: bits, Dimensions: scalar}, nil
	}

	if rest, ok := strings.CutPrefix(s, "sfix"); ok {
		return parseFixSuffix(s, rest, true)
	}
	if rest, ok := strings.CutPrefix(s, "ufix"); ok {
		return parseFixSuffix(s, rest, false)
	}

	if rest, ok := strings.CutPrefix(s, "fixdt("); ok {
		body, ok := strings.CutSuffix(rest, ")")
		if !ok {
			return DataType{}, errors.Newf(errors.CodeParseError, "unparseable type string %q", s)
		}
		parts := strings.Split(body, ",")
		if len(parts) != 3 {
			return DataType{}, errors.Newf(errors.CodeParseError, "unparseable type string %q", s)
		}
		signed, err0 := strconv.Atoi(strings.TrimSpace(parts[0]))
		bits, err1 := strconv.Atoi(strings.TrimSpace(parts[1]))
		frac, err2 := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err0 != nil || err1 != nil || err2 != nil {
			return DataType{}, errors.Newf(errors.CodeParseError, "unparseable type string %q", s)
		}
		return DataType{Signed: signed != 0, TotalBits: bits, FractionalBits: frac, Dimensions: scalar}, nil
	}

	return DataType{}, errors.Newf(errors.CodeParseError, "unsupported type string %q", s)
}

func parseFixSuffix(full, rest string, signed bool) (DataType, error) {
	bitsStr, fracStr, ok := strings.Cut(rest, "_En")
	if !ok {
		return DataType{}, errors.Newf(errors.CodeParseError, "unparseable type string %q", full)
	}
	bits, err0 := strconv.Atoi(bitsStr)
	frac, err1 := strconv.Atoi(fracStr)
	if err0 != nil || err1 != nil {
		return DataType{}, errors.Newf(errors.CodeParseError, "unparseable type string %q", full)
	}
	return DataType{Signed: signed, TotalBits: bits, FractionalBits: frac, Dimensions: []int{1}}, nil
}
