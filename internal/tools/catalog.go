package tools

import (
	"fmt"
	"strings"
)

// Name identifies a catalog tool.
type Name string

const (
	CreateEvent Name = "create_event"
	ListEvents  Name = "list_events"
	AddAttendee Name = "add_attendee"
	DeleteEvent Name = "delete_event"
)

// Names returns every tool name in catalog order.
func Names() []Name {
	return []Name{CreateEvent, ListEvents, AddAttendee, DeleteEvent}
}

// ParseName returns the tool called s.
func ParseName(s string) (Name, bool) {
	for _, n := range Names() {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// Operation renders the name for messages, e.g. "create event".
func (n Name) Operation() string {
	return strings.ReplaceAll(string(n), "_", " ")
}

func (n Name) String() string {
	return string(n)
}

// Property describes one tool argument.
type Property struct {
	Type        string
	Description string
	// Items is the element type of an array property.
	Items string
}

// Definition declares a tool. Definitions are immutable and shared.
type Definition struct {
	Name        Name
	Description string
	Properties  map[string]Property
	// Order lists property names in the order they are presented.
	Order    []string
	Required []string
}

// Validate checks that every required argument is a declared property.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	for _, r := range d.Required {
		if _, ok := d.Properties[r]; !ok {
			return fmt.Errorf("tool %s requires undeclared property %q", d.Name, r)
		}
	}
	if len(d.Order) != len(d.Properties) {
		return fmt.Errorf("tool %s orders %d of %d properties", d.Name, len(d.Order), len(d.Properties))
	}
	for _, p := range d.Order {
		if _, ok := d.Properties[p]; !ok {
			return fmt.Errorf("tool %s orders undeclared property %q", d.Name, p)
		}
	}
	return nil
}

// Schema returns the JSON Schema of the tool's arguments.
// Extra properties are never allowed.
func (d Definition) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           d.SchemaProperties(),
		"required":             append([]string{}, d.Required...),
		"additionalProperties": false,
	}
}

// SchemaProperties returns only the "properties" member of Schema.
func (d Definition) SchemaProperties() map[string]any {
	props := make(map[string]any, len(d.Properties))
	for name, p := range d.Properties {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Items != "" {
			prop["items"] = map[string]any{"type": p.Items}
		}
		props[name] = prop
	}
	return props
}

var catalog = []Definition{
	{
		Name:        CreateEvent,
		Description: "Create a new calendar event",
		Properties: map[string]Property{
			"summary":     {Type: "string", Description: "Title of the event"},
			"start_time":  {Type: "string", Description: "Start time in ISO format"},
			"end_time":    {Type: "string", Description: "End time in ISO format"},
			"description": {Type: "string", Description: "Optional description of the event"},
			"location":    {Type: "string", Description: "Optional location of the event"},
			"attendees":   {Type: "array", Items: "string", Description: "Optional list of attendee emails"},
		},
		Order:    []string{"summary", "start_time", "end_time", "description", "location", "attendees"},
		Required: []string{"summary", "start_time", "end_time", "description", "location", "attendees"},
	},
	{
		Name:        ListEvents,
		Description: "List events within a date range",
		Properties: map[string]Property{
			"start_date":  {Type: "string", Description: "Start date in ISO format"},
			"end_date":    {Type: "string", Description: "End date in ISO format"},
			"max_results": {Type: "integer", Description: "Maximum number of events to return"},
		},
		Order:    []string{"start_date", "end_date", "max_results"},
		Required: []string{"start_date", "end_date"},
	},
	{
		Name:        AddAttendee,
		Description: "Add an attendee to an existing event",
		Properties: map[string]Property{
			"event_id": {Type: "string", Description: "ID of the event or its exact title"},
			"email":    {Type: "string", Description: "Email of the attendee to add"},
		},
		Order:    []string{"event_id", "email"},
		Required: []string{"event_id", "email"},
	},
	{
		Name:        DeleteEvent,
		Description: "Delete a calendar event",
		Properties: map[string]Property{
			"event_id": {Type: "string", Description: "ID or exact title of the event to delete"},
		},
		Order:    []string{"event_id"},
		Required: []string{"event_id"},
	},
}

// Catalog returns the tool definitions in catalog order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition of name.
func Lookup(name Name) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
