package instrumentation

import "strings"

// Label values derived from user data go through these helpers so a metric
// series never carries a full email address or calendar ID.

// ExtractUserDomain extracts the domain part from an email address.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Calendar kinds reported by CalendarKind.
const (
	CalendarKindNone       = "none"
	CalendarKindPrimary    = "primary"
	CalendarKindGroup      = "group"
	CalendarKindSubscribed = "subscribed"
	CalendarKindUser       = "user"
	CalendarKindOther      = "other"
)

// CalendarKind buckets a Google calendar ID by the kind of calendar it names.
//
//	CalendarKind("")                                           // "none"
//	CalendarKind("primary")                                    // "primary"
//	CalendarKind("team@group.calendar.google.com")             // "group"
//	CalendarKind("en.usa#holiday@group.v.calendar.google.com") // "subscribed"
//	CalendarKind("jane@example.com")                           // "user"
func CalendarKind(calendarID string) string {
	id := strings.ToLower(calendarID)
	switch {
	case id == "":
		return CalendarKindNone
	case id == "primary":
		return CalendarKindPrimary
	case strings.HasSuffix(id, "@group.v.calendar.google.com"):
		return CalendarKindSubscribed
	case strings.HasSuffix(id, "@group.calendar.google.com"):
		return CalendarKindGroup
	case ExtractUserDomain(id) != "unknown":
		return CalendarKindUser
	default:
		return CalendarKindOther
	}
}

// Operation types for Google API metrics.
// Status, OAuth, and Service constants are defined in config.go.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)
