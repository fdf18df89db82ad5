package http

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const calendarMonthLayout = "2006-01"

type calendarData struct {
	Label     string
	PrevURL   template.URL
	NextURL   template.URL
	ListURL   template.URL
	Source    string
	Weekdays  []string
	Weeks     [][]calendarDay
	FirstDate string
	LastDate  string
}

type calendarDay struct {
	Date    string
	Day     int
	InMonth bool
	Today   bool
}

// Calendar renders the month grid. Events are loaded by static/calendar.js
// from /api/events, carrying over the page's filters.
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(h.loc)
	query := r.URL.Query()
	first := parseCalendarMonth(query.Get("month"), now, h.loc)

	h.log(r.Context(), "Calendar", "month", first.Format(calendarMonthLayout)).DebugContext(r.Context(), "calendar rendered")
	h.render(w, r, http.StatusOK, "calendar", page{Title: "Calendar", Data: buildCalendar(first, now, query)})
}

// parseCalendarMonth returns midnight on the first day of the requested
// month, falling back to the month containing now.
func parseCalendarMonth(value string, now time.Time, loc *time.Location) time.Time {
	if m, err := time.ParseInLocation(calendarMonthLayout, strings.TrimSpace(value), loc); err == nil {
		return m
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
}

// buildCalendar lays out whole Sunday-first weeks covering the month that
// starts at first.
func buildCalendar(first, today time.Time, query url.Values) calendarData {
	loc := first.Location()
	gridStart := first.AddDate(0, 0, -int(first.Weekday()))
	last := first.AddDate(0, 1, -1)
	gridEnd := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))
	todayKey := today.In(loc).Format(inputDateLayout)

	data := calendarData{
		Label:     first.Format("January 2006"),
		Weekdays:  []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		FirstDate: gridStart.Format(inputDateLayout),
		LastDate:  gridEnd.Format(inputDateLayout),
	}

	var week []calendarDay
	for day := gridStart; !day.After(gridEnd); day = day.AddDate(0, 0, 1) {
		key := day.Format(inputDateLayout)
		week = append(week, calendarDay{
			Date:    key,
			Day:     day.Day(),
			InMonth: day.Month() == first.Month(),
			Today:   key == todayKey,
		})
		if len(week) == 7 {
			data.Weeks = append(data.Weeks, week)
			week = nil
		}
	}

	filters := url.Values{}
	for _, key := range []string{"statuses", "categories", "client"} {
		if values, ok := query[key]; ok {
			filters[key] = values
		}
	}

	nav := func(month time.Time) template.URL {
		q := copyValues(filters)
		q.Set("month", month.Format(calendarMonthLayout))
		return withQuery("/calendar", q)
	}
	data.PrevURL = nav(first.AddDate(0, -1, 0))
	data.NextURL = nav(first.AddDate(0, 1, 0))

	list := copyValues(filters)
	list.Set("start", first.Format(inputDateLayout))
	list.Set("end", first.AddDate(0, 1, 0).Format(inputDateLayout))
	data.ListURL = withQuery("/events", list)

	api := copyValues(filters)
	api.Set("start", gridStart.Format(time.RFC3339))
	api.Set("end", gridEnd.AddDate(0, 0, 1).Format(time.RFC3339))
	data.Source = string(withQuery("/api/events", api))
	return data
}

func copyValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, v := range values {
		out[key] = append([]string(nil), v...)
	}
	return out
}
