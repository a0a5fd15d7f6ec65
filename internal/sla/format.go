package sla

import (
	"fmt"
	"strings"
)

// Locale selects the message catalog used by a Formatter.
type Locale string

const (
	LocaleEnglish    Locale = "en"
	LocalePortuguese Locale = "pt-BR"
)

type messages struct {
	dueNow        string
	dueIn         string
	overdueBy     string
	responded     string
	respondedLate string
}

var catalogs = map[Locale]messages{
	LocaleEnglish: {
		dueNow:        "due now",
		dueIn:         "due in %s",
		overdueBy:     "overdue by %s",
		responded:     "responded in %s",
		respondedLate: "responded in %s (late)",
	},
	LocalePortuguese: {
		dueNow:        "vence agora",
		dueIn:         "vence em %s",
		overdueBy:     "atrasado há %s",
		responded:     "respondido em %s",
		respondedLate: "respondido em %s (fora do prazo)",
	},
}

// ParseLocale resolves a locale name, falling back to English.
func ParseLocale(raw string) Locale {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pt", "pt-br", "pt_br":
		return LocalePortuguese
	default:
		return LocaleEnglish
	}
}

// Formatter renders signed minute counts for display.
type Formatter struct {
	msgs messages
}

// NewFormatter returns a formatter for the locale.
func NewFormatter(locale Locale) Formatter {
	msgs, ok := catalogs[locale]
	if !ok {
		msgs = catalogs[LocaleEnglish]
	}
	return Formatter{msgs: msgs}
}

// Format renders remaining minutes as "due in …", "overdue by …" or "due now".
func (f Formatter) Format(remainingMinutes int) string {
	f = f.orDefault()
	switch {
	case remainingMinutes == 0:
		return f.msgs.dueNow
	case remainingMinutes > 0:
		return fmt.Sprintf(f.msgs.dueIn, span(remainingMinutes))
	default:
		return fmt.Sprintf(f.msgs.overdueBy, span(-remainingMinutes))
	}
}

// FormatResponded renders the time a completed response took.
func (f Formatter) FormatResponded(minutes int, breached bool) string {
	f = f.orDefault()
	if minutes < 0 {
		minutes = 0
	}
	if breached {
		return fmt.Sprintf(f.msgs.respondedLate, span(minutes))
	}
	return fmt.Sprintf(f.msgs.responded, span(minutes))
}

func (f Formatter) orDefault() Formatter {
	if f.msgs.dueIn == "" {
		return NewFormatter(LocaleEnglish)
	}
	return f
}

// span renders "Xh Ym", or "Dd Hh" once the hours exceed a day.
func span(minutes int) string {
	hours := minutes / 60
	rest := minutes % 60
	if hours > 24 {
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	}
	return fmt.Sprintf("%dh %dm", hours, rest)
}
