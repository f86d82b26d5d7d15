package script

import "strings"

var pythonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Escape makes s safe to embed inside a quoted Python string literal.
//
// This is the injection boundary between caller-supplied text and the
// synthesized engine program: backslashes and both quote styles are escaped,
// and literal newlines, carriage returns and tabs become their escape
// sequences. The embedded value always reads back as one opaque string,
// never as additional code.
func Escape(s string) string {
	return pythonEscaper.Replace(s)
}
