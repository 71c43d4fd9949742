package textutil

import (
	"regexp"
	"strings"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	blockStart     = regexp.MustCompile(`(?i)^<(/?)(` + blockTags + `)[\s/>]`)
	blockEnd       = regexp.MustCompile(`(?i)\s*</(` + blockTags + `)>$`)
)

const blockTags = `table|thead|tfoot|caption|col|colgroup|tbody|tr|td|th|div|dl|dd|dt|ul|ol|li|pre|form|map|area|blockquote|address|math|style|p|h[1-6]|hr|fieldset|legend|section|article|aside|hgroup|header|footer|nav|figure|figcaption|details|menu|summary|!--|html|head|body|meta|title|link|center`

// Autop wraps double line-break separated blocks of text in <p> elements
// and turns the remaining single line breaks into <br />. Blocks that start
// with a block-level element are left untouched.
func Autop(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var out strings.Builder
	for _, block := range paragraphBreak.Split(strings.Trim(s, "\n"), -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if blockStart.MatchString(block) {
			out.WriteString(block)
			out.WriteString("\n")
			continue
		}
		// a closing block tag ending the block stays outside the paragraph
		closing := ""
		if loc := blockEnd.FindStringIndex(block); loc != nil {
			block, closing = strings.TrimSpace(block[:loc[0]]), strings.TrimSpace(block[loc[0]:])
		}
		if block != "" {
			out.WriteString("<p>")
			out.WriteString(strings.ReplaceAll(block, "\n", "<br />\n"))
			out.WriteString("</p>\n")
		}
		if closing != "" {
			out.WriteString(closing)
			out.WriteString("\n")
		}
	}
	return out.String()
}
