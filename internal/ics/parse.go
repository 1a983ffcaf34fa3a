package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"railbook/internal/civil"
	appLog "railbook/internal/log"
)

// Alarm is a VALARM as found in a reminder.
type Alarm struct {
	Action  string
	Trigger string
}

// Inspection is the normalized content of a reminder file.
type Inspection struct {
	Method  string
	ProdID  string
	UID     string
	Summary string

	Description string
	Location    string

	Start   time.Time
	End     time.Time
	StartTZ string
	EndTZ   string

	Alarms []Alarm
}

// Inspect parses an .ics payload and returns its first VEVENT.
func Inspect(body []byte) (Inspection, error) {
	var out Inspection
	if len(body) == 0 {
		return out, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return out, err
	}

	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyMethod):
			out.Method = p.Value
		case string(ical.PropertyProductId):
			out.ProdID = p.Value
		}
	}

	events := cal.Events()
	if len(events) == 0 {
		return out, errors.New("ics: no VEVENT")
	}
	ve := events[0]

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = unescapeText(p.Value)
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		out.StartTZ = param(p.ICalParameters, "TZID")
		if out.Start, err = parseICSTime(p.Value, out.StartTZ); err != nil {
			return out, err
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		out.EndTZ = param(p.ICalParameters, "TZID")
		if out.End, err = parseICSTime(p.Value, out.EndTZ); err != nil {
			return out, err
		}
	}

	for _, a := range ve.Alarms() {
		var al Alarm
		if p := a.GetProperty(ical.ComponentPropertyAction); p != nil {
			al.Action = p.Value
		}
		if p := a.GetProperty(ical.ComponentPropertyTrigger); p != nil {
			al.Trigger = p.Value
		}
		out.Alarms = append(out.Alarms, al)
	}

	return out, nil
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";")

// unescapeText reverses RFC 5545 TEXT escaping.
func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

func param(params map[string][]string, key string) string {
	if params == nil {
		return ""
	}
	if vs, ok := params[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseICSTime parses a DATE-TIME value. Asia/Kolkata maps to the fixed IST
// zone so no tz database is needed for our own exports.
func parseICSTime(v, tz string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse(StampLayout+"Z", v)
	}

	loc := time.UTC
	switch {
	case tz == civil.ZoneName:
		loc = civil.IST
	case tz != "":
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			appLog.Debug("ics: unknown TZID, using UTC", "tzid", tz)
		}
	}

	if strings.Contains(v, "T") {
		return time.ParseInLocation(StampLayout, v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
