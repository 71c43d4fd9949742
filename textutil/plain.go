package textutil

import (
	"regexp"
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// WrapWidth is the column plain-text bodies are wrapped at.
const WrapWidth = 70

// ampersand stands in for "&" produced by the ampersand rules until the
// unknown entity rule has run.
const ampersand = "\x00amp\x00"

type plainRule struct {
	search  *regexp.Regexp
	replace string
}

// plainRules turn HTML entities and whitespace into plain text. Order
// matters: every rule sees the output of the previous ones.
var plainRules = []plainRule{
	{regexp.MustCompile(`\r`), ""},
	{regexp.MustCompile(`(?i)&(nbsp|#0*160);`), " "},
	{regexp.MustCompile(`(?i)&(quot|rdquo|ldquo|#0*8220|#0*8221|#0*147|#0*148);`), `"`},
	{regexp.MustCompile(`(?i)&(apos|rsquo|lsquo|#0*8216|#0*8217);`), "'"},
	{regexp.MustCompile(`(?i)&gt;`), ">"},
	{regexp.MustCompile(`(?i)&lt;`), "<"},
	{regexp.MustCompile(`(?i)&#0*38;`), ampersand},
	{regexp.MustCompile(`(?i)&amp;`), ampersand},
	{regexp.MustCompile(`(?i)&(copy|#0*169);`), "(c)"},
	{regexp.MustCompile(`(?i)&(trade|#0*8482|#0*153);`), "(tm)"},
	{regexp.MustCompile(`(?i)&(reg|#0*174);`), "(R)"},
	{regexp.MustCompile(`(?i)&(mdash|#0*151|#0*8212);`), "--"},
	{regexp.MustCompile(`(?i)&(ndash|minus|#0*8211|#0*8722);`), "-"},
	{regexp.MustCompile(`(?i)&(bull|#0*149|#0*8226);`), "*"},
	{regexp.MustCompile(`(?i)&(pound|#0*163);`), "£"},
	{regexp.MustCompile(`(?i)&(euro|#0*8364);`), "EUR"},
	{regexp.MustCompile(`(?i)&(dollar|#0*36);`), "$"},
	{regexp.MustCompile(`&[^&\s;]+;`), ""},
	{regexp.MustCompile(`[ ]{2,}`), " "},
}

// NormalizeEntities applies the plain-text entity rules to s.
func NormalizeEntities(s string) string {
	for _, r := range plainRules {
		s = r.search.ReplaceAllLiteralString(s, r.replace)
	}
	return strings.ReplaceAll(s, ampersand, "&")
}

// WordWrap breaks s at whitespace so that lines stay within width columns.
// Words longer than width are left intact.
func WordWrap(s string, width uint) string {
	return wordwrap.WrapString(s, width)
}

// PlainText converts a rendered plain template into an email body: tags
// are stripped, entities normalized and lines wrapped at WrapWidth.
func PlainText(s string) string {
	return WordWrap(NormalizeEntities(StripTags(s)), WrapWidth)
}
