package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dataflow-compiler/pkg/errors"
)

// NumericValue is a literal carried by constants, delay initial conditions,
// and FIFO initial state.  Complex values keep a separate imaginary part.
type NumericValue struct {
	Real    float64
	Imag    float64
	Complex bool
}

// String prints the value the way the GraphML surface expects it, with an
// `i` suffix on the imaginary part of complex values.
func (v NumericValue) String() string {
	if !v.Complex {
		return trimFloat(v.Real)
	}
	if v.Imag < 0 {
		return fmt.Sprintf("%s-%si", trimFloat(v.Real), trimFloat(-v.Imag))
	}
	return fmt.Sprintf("%s+%si", trimFloat(v.Real), trimFloat(v.Imag))
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseNumericValue parses a single numeric literal, optionally complex
// ("3", "-2.5", "1+2i", "2i", "1-0.5i").
func ParseNumericValue(s string) (NumericValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NumericValue{}, errors.New(errors.CodeParseError, "empty numeric value")
	}

	if !strings.HasSuffix(s, "i") {
		real, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NumericValue{}, errors.Wrap(errors.CodeParseError, "unparseable numeric value "+s, err)
		}
		return NumericValue{Real: real}, nil
	}

	body := strings.TrimSuffix(s, "i")

	// Split into real and imaginary terms on the last +/- that is not a
	// leading sign or part of an exponent.
	split := -1
	for i := len(body) - 1; i > 0; i-- {
		c := body[i]
		if (c == '+' || c == '-') && body[i-1] != 'e' && body[i-1] != 'E' {
			split = i
			break
		}
	}

	if split < 0 {
		// Pure imaginary ("2i", "-1.5i", "i").
		if body == "" || body == "-" || body == "+" {
			body += "1"
		}
		imag, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return NumericValue{}, errors.Wrap(errors.CodeParseError, "unparseable numeric value "+s, err)
		}
		return NumericValue{Imag: imag, Complex: true}, nil
	}

	real, err := strconv.ParseFloat(body[:split], 64)
	if err != nil {
		return NumericValue{}, errors.Wrap(errors.CodeParseError, "unparseable numeric value "+s, err)
	}
	imagStr := body[split:]
	if imagStr == "-" || imagStr == "+" {
		imagStr += "1"
	}
	imag, err := strconv.ParseFloat(imagStr, 64)
	if err != nil {
		return NumericValue{}, errors.Wrap(errors.CodeParseError, "unparseable numeric value "+s, err)
	}
	return NumericValue{Real: real, Imag: imag, Complex: true}, nil
}

// ParseNumericList parses a bracketed list of numeric values
// ("[0, 0, 0]", "[1.5, 2i, 1+2i]").  A bare single value is also accepted.
func ParseNumericList(s string) ([]NumericValue, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	values := make([]NumericValue, 0, len(parts))
	for _, part := range parts {
		v, err := ParseNumericValue(part)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// FormatNumericList prints values as a bracketed list.
func FormatNumericList(values []NumericValue) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
