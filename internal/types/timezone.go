package types

import (
	"strings"
	"time"
)

// timezoneAbbreviationMap maps common timezone abbreviations to IANA identifiers
var timezoneAbbreviationMap = map[string]string{
	"IST":  "Asia/Kolkata",
	"EST":  "America/New_York",
	"CST":  "America/Chicago",
	"MST":  "America/Denver",
	"PST":  "America/Los_Angeles",
	"GMT":  "Europe/London",
	"CET":  "Europe/Berlin",
	"EET":  "Europe/Athens",
	"MSK":  "Europe/Moscow",
	"JST":  "Asia/Tokyo",
	"AEST": "Australia/Sydney",
	"EAT":  "Africa/Nairobi",
	"WAT":  "Africa/Lagos",
	"ALMT": "Asia/Almaty",
}

// ResolveTimezone converts an abbreviation to its IANA identifier or returns the input unchanged
func ResolveTimezone(timezone string) string {
	if ianaName, exists := timezoneAbbreviationMap[strings.ToUpper(timezone)]; exists {
		return ianaName
	}
	return timezone
}

// ValidateTimezone checks that the (possibly abbreviated) timezone can be loaded
func ValidateTimezone(timezone string) error {
	_, err := time.LoadLocation(ResolveTimezone(timezone))
	return err
}
