package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	emDash       = "—"
	enDash       = "–"
	ellipsis     = "…"
	openDouble   = "“"
	closeDouble  = "”"
	openSingle   = "‘"
	closeSingle  = "’"
	trademark    = "™"
	punycodeHold = "\x00xn\x00"
)

var (
	htmlTag = regexp.MustCompile(`<[^>]*>`)

	// Replacements run in this order; "---" must win over "--".
	dashesAndDots = strings.NewReplacer(
		"---", emDash,
		" -- ", " "+emDash+" ",
		"--", enDash,
		" - ", " "+enDash+" ",
		"...", ellipsis,
		"``", openDouble,
		"''", closeDouble,
		" (tm)", " "+trademark,
	)

	noTexturize = map[string]bool{
		"pre": true, "code": true, "kbd": true, "style": true, "script": true, "tt": true,
	}
)

// Texturize applies typographic replacements to the text outside of tags:
// straight quotes become curly quotes, "--" and "---" become dashes and
// "..." an ellipsis. Content of pre, code, kbd, tt, style and script
// elements is left as is.
func Texturize(s string) string {
	var (
		out   strings.Builder
		stack []string
		last  int
	)

	for _, loc := range htmlTag.FindAllStringIndex(s, -1) {
		text := s[last:loc[0]]
		if len(stack) == 0 {
			text = texturizeText(text, lastRune(out.String()))
		}
		out.WriteString(text)

		tag := s[loc[0]:loc[1]]
		out.WriteString(tag)
		stack = trackSkippedTags(stack, tag)
		last = loc[1]
	}

	text := s[last:]
	if len(stack) == 0 {
		text = texturizeText(text, lastRune(out.String()))
	}
	out.WriteString(text)

	return out.String()
}

func trackSkippedTags(stack []string, tag string) []string {
	name := strings.ToLower(strings.Trim(tag, "<>/ \t\n"))
	if i := strings.IndexAny(name, " \t\n/"); i >= 0 {
		name = name[:i]
	}
	if !noTexturize[name] {
		return stack
	}

	if strings.HasPrefix(tag, "</") {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == name {
				return stack[:i]
			}
		}
		return stack
	}
	return append(stack, name)
}

func texturizeText(s string, prev rune) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "xn--", punycodeHold)
	s = dashesAndDots.Replace(s)
	s = strings.ReplaceAll(s, punycodeHold, "xn--")
	return curlyQuotes(s, prev)
}

// curlyQuotes replaces straight quotes. A quote is opening when it starts
// the text or follows whitespace or an opening bracket, closing otherwise.
func curlyQuotes(s string, prev rune) string {
	var out strings.Builder
	out.Grow(len(s))

	for _, r := range s {
		opening := prev == 0 || unicode.IsSpace(prev) || strings.ContainsRune("([{<—–", prev)
		switch r {
		case '"':
			if opening {
				out.WriteString(openDouble)
			} else {
				out.WriteString(closeDouble)
			}
		case '\'':
			if opening {
				out.WriteString(openSingle)
			} else {
				out.WriteString(closeSingle)
			}
		default:
			out.WriteRune(r)
		}
		prev = r
	}
	return out.String()
}

func lastRune(s string) rune {
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	if r == '>' {
		// Text following a tag starts fresh.
		return 0
	}
	return r
}
