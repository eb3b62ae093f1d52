package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// skippedDestinations hold formatting tables and embedded objects, not body text.
var skippedDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "object": true, "header": true, "footer": true,
	"listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "themedata": true, "datastore": true, "latentstyles": true,
}

type rtfGroup struct {
	skip   bool
	ucSkip int
}

// RTF strips control words and groups from a rich text document.
func RTF(data []byte) (string, error) {
	s := string(data)
	if !strings.HasPrefix(strings.TrimSpace(s), "{\\rtf") {
		return "", fmt.Errorf("missing {\\rtf header")
	}

	var (
		out     strings.Builder
		stack   []rtfGroup
		pending int // characters still to skip after a \u escape
	)
	current := rtfGroup{ucSkip: 1}

	emit := func(r rune) {
		if current.skip {
			return
		}
		if pending > 0 {
			pending--
			return
		}
		out.WriteRune(r)
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '{':
			stack = append(stack, current)
			i++
		case '}':
			if len(stack) == 0 {
				return "", fmt.Errorf("unbalanced group at byte %d", i)
			}
			current = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			i++
		case '\\':
			i++
			if i >= len(s) {
				break
			}
			next := s[i]
			switch {
			case next == '\\' || next == '{' || next == '}':
				emit(rune(next))
				i++
			case next == '*':
				current.skip = true
				i++
			case next == '\'':
				if i+3 > len(s) {
					return "", fmt.Errorf("truncated hex escape at byte %d", i)
				}
				v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
				if err != nil {
					return "", fmt.Errorf("invalid hex escape at byte %d", i)
				}
				emit(rune(v))
				i += 3
			case next == '~':
				emit(' ')
				i++
			case next == '\n' || next == '\r':
				emit('\n')
				i++
			case isASCIILetter(next):
				start := i
				for i < len(s) && isASCIILetter(s[i]) {
					i++
				}
				word := s[start:i]
				numStart := i
				if i < len(s) && s[i] == '-' {
					i++
				}
				for i < len(s) && s[i] >= '0' && s[i] <= '9' {
					i++
				}
				param := s[numStart:i]
				if i < len(s) && s[i] == ' ' {
					i++
				}
				handleControlWord(word, param, &current, &pending, emit)
			default:
				// other control symbols such as \- or \_
				i++
			}
		case '\r', '\n':
			i++
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			emit(r)
			i += size
		}
	}

	return out.String(), nil
}

func handleControlWord(word, param string, g *rtfGroup, pending *int, emit func(rune)) {
	if skippedDestinations[word] {
		g.skip = true
		return
	}
	switch word {
	case "par", "line", "row", "sect", "page":
		emit('\n')
	case "tab", "cell":
		emit('\t')
	case "emdash", "endash":
		emit('-')
	case "lquote", "rquote":
		emit('\'')
	case "ldblquote", "rdblquote":
		emit('"')
	case "bullet":
		emit('•')
	case "uc":
		if n, err := strconv.Atoi(param); err == nil && n >= 0 {
			g.ucSkip = n
		}
	case "u":
		n, err := strconv.Atoi(param)
		if err != nil {
			return
		}
		if n < 0 {
			n += 65536
		}
		emit(rune(n))
		*pending = g.ucSkip
	}
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
