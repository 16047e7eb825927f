// Package slug строит и проверяет URL-slug категорий.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength - максимальная длина slug.
const MaxLength = 100

var (
	// Pattern - допустимый формат: строчные латинские буквы и цифры, разделённые одиночными дефисами.
	Pattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// cyrillic транслитерирует кириллицу, чтобы русские названия давали читаемый slug.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

// Valid сообщает, соответствует ли строка формату slug.
func Valid(s string) bool {
	return len(s) <= MaxLength && Pattern.MatchString(s)
}

// From строит slug из произвольного названия: снимает диакритику,
// транслитерирует кириллицу, заменяет прочие символы дефисами.
func From(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if tr, ok := cyrillic[r]; ok {
			b.WriteString(tr)
			continue
		}
		b.WriteRune(r)
	}

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, b.String())
	if err != nil {
		result = b.String()
	}

	out := nonAlphanumeric.ReplaceAllString(result, "-")
	out = strings.Trim(out, "-")
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// isMn сообщает, является ли r несамостоятельным знаком (диакритикой).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
