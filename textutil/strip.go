package textutil

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripTags removes every markup tag and comment from s. The content of
// script and style elements is dropped as well. Text is kept raw, so
// entities such as &nbsp; survive for PlainText to normalize.
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var (
		out  bytes.Buffer
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF is the only error a strings.Reader can produce.
			return strings.TrimSpace(out.String())
		case html.TextToken:
			if skip == 0 {
				out.Write(z.Raw())
			}
		case html.StartTagToken:
			if isRawElement(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawElement(z) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawElement(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}

// HTMLDocumentSupport reports whether HTML documents can be parsed. Emails
// fall back to plain text when it returns false.
var HTMLDocumentSupport = func() bool {
	_, err := html.Parse(strings.NewReader("<p></p>"))
	return err == nil
}
