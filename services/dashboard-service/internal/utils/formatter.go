package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown in place of a missing counter.
const Placeholder = "—"

var printer = message.NewPrinter(language.English)

// FormatStat renders value with thousands separators, or Placeholder when absent.
func FormatStat(value *int64) string {
	if value == nil {
		return Placeholder
	}
	return FormatCount(*value)
}

func FormatCount(value int64) string {
	return printer.Sprintf("%d", value)
}

// FormatDelta renders a daily delta as "+1,234", or Placeholder when absent.
func FormatDelta(value *int64) string {
	if value == nil {
		return Placeholder
	}
	if *value > 0 {
		return "+" + FormatCount(*value)
	}
	return FormatCount(*value)
}
