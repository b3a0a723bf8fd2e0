package sqlguard

import "strings"

// scan walks a statement once and returns it with every string literal,
// quoted identifier and comment blanked out, plus the decoded contents of
// each single-quoted literal. Doubled quotes ('') and backslash escapes both
// stay inside the literal.
func scan(sqlQuery string) (masked string, literals []string) {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	runes := []rune(sqlQuery)
	var out strings.Builder
	var lit strings.Builder
	state := stateNormal

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingleQuote
				lit.Reset()
				out.WriteRune(' ')
			case c == '"':
				state = stateDoubleQuote
				out.WriteRune(' ')
			case c == '-' && next == '-':
				state = stateLineComment
				out.WriteRune(' ')
				i++
			case c == '/' && next == '*':
				state = stateBlockComment
				out.WriteRune(' ')
				i++
			default:
				out.WriteRune(c)
			}
		case stateSingleQuote:
			switch {
			case c == '\\' && next != 0:
				lit.WriteRune(next)
				i++
			case c == '\'' && next == '\'':
				lit.WriteRune('\'')
				i++
			case c == '\'':
				literals = append(literals, lit.String())
				state = stateNormal
			default:
				lit.WriteRune(c)
			}
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteRune('\n')
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}
	if state == stateSingleQuote {
		literals = append(literals, lit.String())
	}
	return out.String(), literals
}
