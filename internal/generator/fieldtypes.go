package generator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errUnbalancedParens = errors.New("unbalanced parentheses")
	errEmptyType        = errors.New("empty column type")
)

// ColumnType is a parsed column declaration such as
// "varchar(120) NOT NULL" or "INTEGER PRIMARY KEY AUTOINCREMENT".
type ColumnType struct {
	// SQLAlchemy is the mapped type expression, e.g. "String(120)".
	SQLAlchemy    string
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	NotNull       bool
	// Default is the raw default expression, empty when none.
	Default string
}

// Args renders the keyword arguments of a Column(...) call.
func (c ColumnType) Args() string {
	var args []string
	if c.PrimaryKey {
		args = append(args, "primary_key=True")
	}
	if c.AutoIncrement {
		args = append(args, "autoincrement=True")
	}
	if c.Unique {
		args = append(args, "unique=True")
	}
	if c.NotNull {
		args = append(args, "nullable=False")
	}
	if c.Default != "" {
		args = append(args, fmt.Sprintf("server_default=sa.text(%s)", strconv.Quote(c.Default)))
	}
	return strings.Join(args, ", ")
}

// ParseColumnType maps a column declaration to its SQLAlchemy type and modifiers.
// Unknown base types map to String(255). Malformed declarations fail.
func ParseColumnType(decl string) (ColumnType, error) {
	base, rest, err := splitBase(strings.TrimSpace(decl))
	if err != nil {
		return ColumnType{}, err
	}

	name, params, err := splitParams(base)
	if err != nil {
		return ColumnType{}, err
	}

	col := ColumnType{}
	col.SQLAlchemy, err = mapType(strings.ToLower(name), params)
	if err != nil {
		return ColumnType{}, err
	}
	if err := parseModifiers(&col, rest); err != nil {
		return ColumnType{}, err
	}
	return col, nil
}

// splitBase separates the base type, parameters included, from the modifiers.
func splitBase(decl string) (string, string, error) {
	if decl == "" {
		return "", "", errEmptyType
	}
	depth := 0
	for i, r := range decl {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", "", errUnbalancedParens
			}
		case ' ', '\t':
			if depth == 0 {
				return decl[:i], strings.TrimSpace(decl[i:]), nil
			}
		}
	}
	if depth != 0 {
		return "", "", errUnbalancedParens
	}
	return decl, "", nil
}

// splitParams splits "decimal(10, 2)" into "decimal" and [10 2].
func splitParams(base string) (string, []int, error) {
	open := strings.IndexByte(base, '(')
	if open < 0 {
		if strings.ContainsRune(base, ')') {
			return "", nil, errUnbalancedParens
		}
		return base, nil, nil
	}
	if !strings.HasSuffix(base, ")") || strings.Count(base, "(") != 1 || strings.Count(base, ")") != 1 {
		return "", nil, errUnbalancedParens
	}
	name := base[:open]
	if name == "" {
		return "", nil, errEmptyType
	}

	inner := strings.TrimSpace(base[open+1 : len(base)-1])
	if inner == "" {
		return "", nil, fmt.Errorf("type %q: empty parameter list", name)
	}
	var params []int
	for _, p := range strings.Split(inner, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return "", nil, fmt.Errorf("type %q: parameter %q is not a positive integer", name, strings.TrimSpace(p))
		}
		params = append(params, n)
	}
	return name, params, nil
}

func mapType(name string, params []int) (string, error) {
	switch name {
	case "string", "varchar", "char":
		switch len(params) {
		case 0:
			return "String(255)", nil
		case 1:
			return fmt.Sprintf("String(%d)", params[0]), nil
		}
	case "decimal", "numeric":
		switch len(params) {
		case 0:
			return "Numeric(10, 2)", nil
		case 2:
			if params[1] > params[0] {
				return "", fmt.Errorf("type %q: scale %d exceeds precision %d", name, params[1], params[0])
			}
			return fmt.Sprintf("Numeric(%d, %d)", params[0], params[1]), nil
		}
	default:
		if len(params) > 0 {
			break
		}
		if mapped, ok := simpleTypes[name]; ok {
			return mapped, nil
		}
		return "String(255)", nil
	}
	return "", fmt.Errorf("type %q: unexpected %d parameter(s)", name, len(params))
}

var simpleTypes = map[string]string{
	"text":      "Text",
	"integer":   "Integer",
	"int":       "Integer",
	"bigint":    "BigInteger",
	"float":     "Float",
	"real":      "Float",
	"boolean":   "Boolean",
	"bool":      "Boolean",
	"datetime":  "DateTime",
	"timestamp": "DateTime",
	"date":      "Date",
	"uuid":      "UUID",
	"json":      "JSON",
}

func parseModifiers(col *ColumnType, rest string) error {
	for rest = strings.TrimSpace(rest); rest != ""; rest = strings.TrimSpace(rest) {
		var word string
		word, rest = nextWord(rest)
		switch strings.ToUpper(word) {
		case "PRIMARY":
			if next, after := nextWord(rest); strings.EqualFold(next, "KEY") {
				col.PrimaryKey = true
				rest = after
			}
		case "AUTOINCREMENT", "AUTO_INCREMENT":
			col.AutoIncrement = true
		case "UNIQUE":
			col.Unique = true
		case "NOT":
			if next, after := nextWord(rest); strings.EqualFold(next, "NULL") {
				col.NotNull = true
				rest = after
			}
		case "DEFAULT":
			def, after, err := defaultExpr(strings.TrimSpace(rest))
			if err != nil {
				return err
			}
			col.Default = def
			rest = after
		}
	}
	return nil
}

func nextWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

// defaultExpr reads one SQL default: a quoted literal ('' escapes a quote),
// a balanced parenthesized expression, or a bare word.
func defaultExpr(s string) (string, string, error) {
	if s == "" {
		return "", "", errors.New("DEFAULT without a value")
	}
	switch s[0] {
	case '\'':
		end, err := quotedEnd(s, 0)
		if err != nil {
			return "", "", err
		}
		return s[:end], s[end:], nil
	case '(':
		depth := 0
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '\'':
				end, err := quotedEnd(s, i)
				if err != nil {
					return "", "", err
				}
				i = end - 1
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return s[:i+1], s[i+1:], nil
				}
			}
		}
		return "", "", fmt.Errorf("DEFAULT %s: %w", s, errUnbalancedParens)
	}
	word, after := nextWord(s)
	if strings.ContainsAny(word, "'()") {
		return "", "", fmt.Errorf("DEFAULT %s: malformed expression", word)
	}
	return word, after, nil
}

// quotedEnd returns the index just past the literal opening at s[start].
func quotedEnd(s string, start int) (int, error) {
	for i := start + 1; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, fmt.Errorf("DEFAULT %s: unterminated string literal", s[start:])
}
