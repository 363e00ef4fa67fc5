package ejs

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// localsName addresses the whole locals map, as in EJS.
const localsName = "locals"

// evaluate resolves expr against locals. A chain "a || b || 'c'" yields the
// first truthy operand, or the last operand when none is truthy.
func evaluate(expr string, locals map[string]any) (any, error) {
	operands, err := splitFallbacks(expr)
	if err != nil {
		return nil, err
	}

	var value any
	for _, operand := range operands {
		value, err = evaluateOperand(operand, locals)
		if err != nil {
			return nil, err
		}
		if truthy(value) {
			return value, nil
		}
	}
	return value, nil
}

func evaluateOperand(operand string, locals map[string]any) (any, error) {
	if operand == "" {
		return nil, ErrSyntax
	}

	switch operand {
	case "null", "undefined":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	if isQuote(operand[0]) {
		return parseStringLiteral(operand)
	}
	if isNumberStart(operand[0]) {
		n, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSyntax, operand)
		}
		return n, nil
	}

	segments := strings.Split(operand, ".")
	for _, segment := range segments {
		if !isIdentifier(segment) {
			return nil, fmt.Errorf("%w: %s", ErrSyntax, operand)
		}
	}
	return lookup(locals, segments), nil
}

// splitFallbacks splits expr on "||" outside of string literals.
func splitFallbacks(expr string) ([]string, error) {
	var (
		parts []string
		quote byte
		start int
	)
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
		case isQuote(c):
			quote = c
		case c == '|' && i+1 < len(expr) && expr[i+1] == '|':
			parts = append(parts, strings.TrimSpace(expr[start:i]))
			i++
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated string in %s", ErrSyntax, expr)
	}
	parts = append(parts, strings.TrimSpace(expr[start:]))
	return parts, nil
}

func parseStringLiteral(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != lit[len(lit)-1] || !isQuote(lit[0]) {
		return "", fmt.Errorf("%w: %s", ErrSyntax, lit)
	}

	inner := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == lit[0] {
			return "", fmt.Errorf("%w: %s", ErrSyntax, lit)
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			return "", fmt.Errorf("%w: %s", ErrSyntax, lit)
		}
		switch inner[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(inner[i])
		}
	}
	return b.String(), nil
}

// parseInclude recognises include('name'). A second locals argument is not
// supported.
func parseInclude(body string) (string, bool, error) {
	if !strings.HasPrefix(body, "include(") {
		return "", false, nil
	}
	if !strings.HasSuffix(body, ")") {
		return "", true, fmt.Errorf("%w: %s", ErrSyntax, body)
	}

	arg := strings.TrimSpace(body[len("include(") : len(body)-1])
	if arg == "" || !isQuote(arg[0]) {
		return "", true, fmt.Errorf("%w: include expects a single string argument", ErrSyntax)
	}
	name, err := parseStringLiteral(arg)
	if err != nil {
		return "", true, err
	}
	if strings.TrimSpace(name) == "" {
		return "", true, fmt.Errorf("%w: empty include path", ErrSyntax)
	}
	return name, true, nil
}

func lookup(locals map[string]any, segments []string) any {
	var current any = locals
	if segments[0] == localsName {
		if v, ok := locals[localsName]; ok {
			current = v
		}
		segments = segments[1:]
	}

	for _, segment := range segments {
		next, ok := field(current, segment)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func field(v any, name string) (any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		value, ok := m[name]
		return value, ok
	case map[string]string:
		value, ok := m[name]
		return value, ok
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Struct:
		value := rv.FieldByName(name)
		if !value.IsValid() || !value.CanInterface() {
			return nil, false
		}
		return value.Interface(), true
	}
	return nil, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return formatNumber(s, 64)
	case float32:
		return formatNumber(float64(s), 32)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

// formatNumber prints f the way JavaScript's Number#toString does: plain
// decimals between 1e-6 and 1e21, exponent notation outside that range.
func formatNumber(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bitSize), "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
