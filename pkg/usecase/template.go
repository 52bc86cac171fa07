package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// templatePattern matches a substitution token: an optional case modifier,
// an optional truncation length and the source letter. %l is the last name,
// %f the first name, %u the username. The modifiers are - (lowercase),
// + (uppercase) and ~ (capitalize first letter).
var templatePattern = regexp.MustCompile(`%([+~-]?)(\d*)([flu])`)

// ProcessTemplate expands the substitution tokens in tpl using the given
// name parts. A leading digit truncates the substituted value to its first
// N characters, so %1f.%l turns "Ada Lee" into "a.lee" with the lowercase
// modifier applied by the caller's template.
func ProcessTemplate(tpl, username, firstname, lastname string) string {
	return templatePattern.ReplaceAllStringFunc(tpl, func(tok string) string {
		m := templatePattern.FindStringSubmatch(tok)
		var val string
		switch m[3] {
		case "l":
			val = lastname
		case "f":
			val = firstname
		case "u":
			val = username
		}
		if m[2] != "" {
			if n, err := strconv.Atoi(m[2]); err == nil {
				val = truncate(val, n)
			}
		}
		switch m[1] {
		case "-":
			val = strings.ToLower(val)
		case "+":
			val = strings.ToUpper(val)
		case "~":
			val = capitalize(val)
		}
		return val
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
