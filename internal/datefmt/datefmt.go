// Package datefmt renders dates with localized month and weekday names
// and capitalises every word of the result.
package datefmt

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Layouts used by the calendar views.
const (
	LongDate   = "2 de January de 2006"
	Clock      = "15:04"
	MonthTitle = "January 2006"
	DayTitle   = "2 January 2006"
	ISODay     = "2006-01-02"
)

// Locale holds the translated names for one language.
type Locale struct {
	Tag         language.Tag
	Months      [12]string
	ShortMonths [12]string
	Days        [7]string
	ShortDays   [7]string
}

var ptBR = Locale{
	Tag: language.BrazilianPortuguese,
	Months: [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho",
		"julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
	ShortMonths: [12]string{"jan", "fev", "mar", "abr", "mai", "jun",
		"jul", "ago", "set", "out", "nov", "dez"},
	Days:      [7]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"},
	ShortDays: [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"},
}

var enUS = Locale{
	Tag: language.AmericanEnglish,
	Months: [12]string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	ShortMonths: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	Days:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	ShortDays: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
}

var (
	supported = []Locale{ptBR, enUS}
	matcher   = language.NewMatcher([]language.Tag{ptBR.Tag, enUS.Tag})
)

// Default is Brazilian Portuguese.
var Default = ptBR

// Lookup resolves a BCP 47 string such as "pt-BR" or "en" to the
// closest supported locale. Unknown or malformed input yields Default.
func Lookup(tag string) Locale {
	if strings.TrimSpace(tag) == "" {
		return Default
	}
	t, err := language.Parse(tag)
	if err != nil {
		return Default
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return Default
	}
	return supported[idx]
}

// Capitalize upper-cases the first character of every
// whitespace-separated word.
func Capitalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	atStart := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			atStart = true
			b.WriteRune(r)
			continue
		}
		if atStart {
			r = unicode.ToUpper(r)
			atStart = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Format renders t with a Go layout, translates English month and
// weekday names into loc and capitalises the result.
func Format(t time.Time, layout string, loc Locale) string {
	return Capitalize(translate(t.Format(layout), loc))
}

// translate swaps each alphabetic word that is an English month or day
// name for its localized counterpart. Other words are kept as is.
func translate(s string, loc Locale) string {
	if loc.Tag == enUS.Tag {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if !unicode.IsLetter(r) {
			b.WriteRune(r)
			s = s[size:]
			continue
		}
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
		if end < 0 {
			end = len(s)
		}
		b.WriteString(lookupWord(s[:end], loc))
		s = s[end:]
	}
	return b.String()
}

func lookupWord(w string, loc Locale) string {
	for i, name := range enUS.Months {
		if w == name {
			return loc.Months[i]
		}
	}
	for i, name := range enUS.ShortMonths {
		if w == name {
			return loc.ShortMonths[i]
		}
	}
	for i, name := range enUS.Days {
		if w == name {
			return loc.Days[i]
		}
	}
	for i, name := range enUS.ShortDays {
		if w == name {
			return loc.ShortDays[i]
		}
	}
	return w
}

// MonthName returns the localized, capitalised month name.
func MonthName(m time.Month, loc Locale) string {
	return Capitalize(loc.Months[m-1])
}

// WeekdayInitials returns two-letter weekday headers starting at start.
func WeekdayInitials(start time.Weekday, loc Locale) []string {
	out := make([]string, 7)
	for i := 0; i < 7; i++ {
		d := loc.ShortDays[(int(start)+i)%7]
		runes := []rune(d)
		if len(runes) > 2 {
			runes = runes[:2]
		}
		out[i] = Capitalize(string(runes))
	}
	return out
}
