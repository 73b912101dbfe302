package prompt

import (
	"fmt"
	"strings"
)

// Fill replaces {name} placeholders in tmpl with vars[name]. Doubled braces
// produce a literal brace. A brace that does not open a placeholder is
// copied as is. A placeholder without a value is an error.
func Fill(tmpl string, vars map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			name, end, ok := placeholderAt(tmpl, i)
			if !ok {
				sb.WriteByte(c)
				continue
			}
			v, found := vars[name]
			if !found {
				return "", fmt.Errorf("missing value for {%s}", name)
			}
			sb.WriteString(v)
			i = end
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// placeholderAt parses "{ident}" starting at tmpl[i] and returns the name
// and the index of the closing brace.
func placeholderAt(tmpl string, i int) (string, int, bool) {
	j := i + 1
	for j < len(tmpl) && isIdent(tmpl[j]) {
		j++
	}
	if j == i+1 || j >= len(tmpl) || tmpl[j] != '}' {
		return "", 0, false
	}
	return tmpl[i+1 : j], j, true
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func placeholders(tmpl string) []string {
	var names []string
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{' {
			i++
			continue
		}
		if tmpl[i] == '{' {
			if name, end, ok := placeholderAt(tmpl, i); ok {
				names = append(names, name)
				i = end
			}
		}
	}
	return names
}
