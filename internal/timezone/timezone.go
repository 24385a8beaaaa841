// Package timezone maps chat locales to IANA zones and renders zone names
// for the settings menu.
package timezone

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const Default = "UTC"

var byLanguage = map[string]string{
	"ru": "Europe/Moscow",
	"kk": "Asia/Almaty",
	"kz": "Asia/Almaty",
	"uz": "Asia/Tashkent",
	"ky": "Asia/Bishkek",
	"tg": "Asia/Dushanbe",
	"tj": "Asia/Dushanbe",
	"az": "Asia/Baku",
	"hy": "Asia/Yerevan",
	"am": "Asia/Yerevan",
	"ka": "Asia/Tbilisi",
	"be": "Europe/Minsk",
	"uk": "Europe/Kiev",
	"en": "UTC",
	"de": "Europe/Berlin",
	"fr": "Europe/Paris",
	"es": "Europe/Madrid",
	"it": "Europe/Rome",
	"pt": "Europe/Lisbon",
	"pl": "Europe/Warsaw",
	"tr": "Europe/Istanbul",
	"ar": "Asia/Dubai",
	"fa": "Asia/Tehran",
	"hi": "Asia/Kolkata",
	"zh": "Asia/Shanghai",
	"ja": "Asia/Tokyo",
	"ko": "Asia/Seoul",
}

var cities = map[string]string{
	"Europe/Moscow":   "Moscow",
	"Asia/Almaty":     "Almaty",
	"Asia/Tashkent":   "Tashkent",
	"Asia/Bishkek":    "Bishkek",
	"Asia/Dushanbe":   "Dushanbe",
	"Asia/Baku":       "Baku",
	"Asia/Yerevan":    "Yerevan",
	"Asia/Tbilisi":    "Tbilisi",
	"Europe/Minsk":    "Minsk",
	"Europe/Kiev":     "Kyiv",
	"UTC":             "UTC",
	"Europe/Berlin":   "Berlin",
	"Europe/Paris":    "Paris",
	"Europe/Madrid":   "Madrid",
	"Europe/Rome":     "Rome",
	"Europe/Lisbon":   "Lisbon",
	"Europe/Warsaw":   "Warsaw",
	"Europe/Istanbul": "Istanbul",
	"Asia/Dubai":      "Dubai",
	"Asia/Tehran":     "Tehran",
	"Asia/Kolkata":    "Kolkata",
	"Asia/Shanghai":   "Shanghai",
	"Asia/Tokyo":      "Tokyo",
	"Asia/Seoul":      "Seoul",
}

// Available is the settings menu selection, in display order.
var Available = []string{
	"Europe/Moscow",
	"Asia/Almaty",
	"Asia/Tashkent",
	"Asia/Bishkek",
	"Asia/Dushanbe",
	"Asia/Baku",
	"Asia/Yerevan",
	"Asia/Tbilisi",
	"Europe/Minsk",
	"Europe/Kiev",
	"UTC",
	"Europe/Berlin",
	"Europe/Paris",
	"Asia/Dubai",
	"Asia/Tokyo",
}

// FromLocale picks a zone from a locale such as "ru", "pt-BR" or "en_US".
// Unknown or empty locales fall back to fallback, then to UTC.
func FromLocale(locale, fallback string) string {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if zone, ok := byLanguage[lang]; ok {
		return zone
	}
	if IsValid(fallback) {
		return fallback
	}
	return Default
}

func IsValid(zone string) bool {
	if zone == "" {
		return false
	}
	_, err := time.LoadLocation(zone)
	return err == nil
}

// IsOffered reports whether zone is one of the settings menu choices.
func IsOffered(zone string) bool {
	for _, z := range Available {
		if z == zone {
			return true
		}
	}
	return false
}

// Load returns the location for zone, or UTC when it cannot be loaded.
func Load(zone string) *time.Location {
	loc, err := time.LoadLocation(zone)
	if err != nil || zone == "" {
		return time.UTC
	}
	return loc
}

// DisplayName renders zone as "City (UTC+3)" using the offset in effect at t.
func DisplayName(zone string, t time.Time) string {
	city, ok := cities[zone]
	if !ok {
		city = zone
	}
	_, offset := t.In(Load(zone)).Zone()
	return fmt.Sprintf("%s (%s)", city, formatOffset(offset))
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h, m := seconds/3600, seconds%3600/60
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, h, m)
}
