package summary

import (
	"html"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

var (
	boldTag   = regexp.MustCompile(`<b>(.*?)</b>`)
	italicTag = regexp.MustCompile(`<i>(.*?)</i>`)
	anyTag    = regexp.MustCompile(`<[^>]+>`)
)

// Plain strips the markup, leaving the text a terminal can show as-is.
func Plain(markup string) string {
	return html.UnescapeString(anyTag.ReplaceAllString(markup, ""))
}

// Colorize turns the markup into colored terminal output for previews.
func Colorize(markup string) string {
	headerColor := color.New(color.FgCyan, color.Bold).SprintFunc()
	subtle := color.New(color.FgHiBlack).SprintFunc()

	lines := strings.Split(markup, "\n")
	for i, line := range lines {
		line = boldTag.ReplaceAllStringFunc(line, func(m string) string {
			return headerColor(boldTag.FindStringSubmatch(m)[1])
		})
		line = italicTag.ReplaceAllStringFunc(line, func(m string) string {
			return subtle(italicTag.FindStringSubmatch(m)[1])
		})
		lines[i] = html.UnescapeString(line)
	}
	return strings.Join(lines, "\n")
}
