// Package calendar performs the calendar operations behind the assistant's tools.
//
// A Client executes four operations against a Backend: create, list, add an
// attendee and delete. It owns an EventCache, a derived index of events seen
// during a session that is keyed by event ID and by lowercased title, and a
// Resolver that turns a loose event reference (an ID or a title) into an event ID.
//
// Failures of the backing service never escape as Go errors. They are reported
// in the returned Result so the caller can relay them to the user. Only
// malformed caller input is returned as an *InvalidInputError.
//
// GoogleBackend implements Backend on top of the Google Calendar v3 API.
//
// Example usage:
//
//	backend, err := calendar.NewGoogleBackend(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//	client := calendar.NewClient(backend, calendar.StaticCalendar("primary"), logger)
//
//	res, err := client.DeleteEvent(ctx, "Standup")
//	if err != nil {
//	    return err // invalid input only
//	}
//	fmt.Println(res.Message)
package calendar
