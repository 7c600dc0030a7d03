package rendering

import "strings"

// latexSpecials maps each LaTeX special character to its escaped form.
// The replacer scans once, so inserted backslashes are never re-escaped.
var latexSpecials = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`%`, `\%`,
	`#`, `\#`,
	`^`, `\textasciicircum{}`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
)

// EscapeLaTeX escapes special LaTeX characters in text
// Special characters: \ { } $ & % # ^ _ ~
func EscapeLaTeX(text string) string {
	return latexSpecials.Replace(text)
}

// identity is the escape function for formats whose template engine escapes
// on its own.
func identity(s string) string { return s }
