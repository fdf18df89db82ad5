package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages_RenderEveryTemplate(t *testing.T) {
	t.Parallel()

	pages := newTestPages(t)
	locationID := int64(3)
	start := time.Date(2025, 6, 14, 18, 0, 0, 0, time.UTC)
	element := application.Element{ID: 4, Name: "Speaker", TypeID: 2, TypeName: "Audio", Status: application.ElementStatusAvailable, LocationID: &locationID, ReplacementValue: decimal.RequireFromString("499.90")}
	kit := application.Kit{ID: 5, Name: "PA kit", ElementIDs: []int64{4}, Elements: []application.Element{element}}
	event := application.Event{ID: 6, Title: "Gala", Start: start, End: start.Add(4 * time.Hour), Status: application.EventStatusBooked, ClientName: "Acme", ClientColor: "#3788d8"}

	tests := []struct {
		name string
		data page
		want string
	}{
		{name: "login", data: page{Title: "Log in", Form: newForm(nil)}, want: "Log in"},
		{name: "error", data: page{Title: "Not Found", Message: "gone", Status: http.StatusNotFound}, want: "gone"},
		{name: "dashboard", data: page{Title: "Dashboard", Data: application.Dashboard{Upcoming: []application.Event{event}, Maintenance: []application.Element{element}}}, want: "Gala"},
		{name: "clients", data: page{Title: "Clients", Data: []application.Client{{ID: 1, Name: "Acme", Color: "#3788d8"}}}, want: "Acme"},
		{name: "client_form", data: clientFormPage(newForm(map[string]string{"name": "Acme"}), 1), want: "/clients/1/edit"},
		{name: "locations", data: page{Title: "Locations", Data: []application.Location{{ID: 1, Name: "Main Hall"}}}, want: "Main Hall"},
		{name: "location_form", data: page{Title: "New Location", Action: "/locations/new", Form: newForm(nil)}, want: "/locations/new"},
		{name: "element_types", data: page{Title: "Element Types", Data: []application.ElementType{{ID: 2, Name: "Audio", ElementCount: 1}}}, want: "Audio"},
		{name: "element_type_form", data: page{Title: "New Element Type", Action: "/element-types/new", Form: newForm(nil)}, want: "/element-types/new"},
		{
			name: "elements",
			data: page{Title: "Elements", Data: elementListData{
				Elements: []application.Element{element},
				Types:    []application.ElementType{{ID: 2, Name: "Audio"}},
				Statuses: application.ElementStatuses,
				TypeID:   2,
			}},
			want: "499.90",
		},
		{
			name: "element_form",
			data: page{Title: "New Element", Action: "/elements/new", Form: newForm(map[string]string{"type_id": "2"}), Data: elementFormData{
				Types:     []application.ElementType{{ID: 2, Name: "Audio"}},
				Locations: []application.Location{{ID: 3, Name: "Warehouse"}},
				Statuses:  application.ElementStatuses,
			}},
			want: "Warehouse",
		},
		{name: "kits", data: page{Title: "Kits", Data: []application.Kit{kit}}, want: "PA kit"},
		{name: "kit_form", data: page{Title: "New Kit", Action: "/kits/new", Form: newForm(nil, 4), Data: []application.Element{element}}, want: "checked"},
		{
			name: "events",
			data: page{Title: "Events", Data: eventListData{
				Events:     []application.Event{event},
				Categories: []application.Category{{ID: 1, Name: "Wedding"}},
				Statuses:   application.EventStatuses,
				Selected:   map[string]bool{"category:1": true},
				ReportURL:  withQuery("/events/report.pdf", url.Values{"categories": {"1"}}),
			}},
			want: "/events/report.pdf?categories=1",
		},
		{
			name: "event_form",
			data: page{Title: "New Event", Action: "/events/new", Form: newForm(map[string]string{"status": application.EventStatusBooked}), Data: eventFormData{
				Kits:     []application.Kit{kit},
				Statuses: application.EventStatuses,
			}},
			want: "499.90",
		},
		{
			name: "calendar",
			data: page{Title: "Calendar", Data: buildCalendar(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC), url.Values{})},
			want: `data-date="2025-06-02" class=" today"`,
		},
		{name: "users", data: page{Title: "Users", Data: []application.User{{ID: 1, Username: "admin", Role: "admin"}}}, want: "admin"},
		{name: "user_form", data: userFormPage(newForm(map[string]string{"role": "staff"}), 0), want: "selected"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.data.Principal = adminPrincipal
			rec := httptest.NewRecorder()
			require.NoError(t, pages.Render(rec, http.StatusOK, tc.name, tc.data))
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestPages_RenderUnknownTemplate(t *testing.T) {
	t.Parallel()

	pages := newTestPages(t)
	rec := httptest.NewRecorder()

	err := pages.Render(rec, http.StatusOK, "missing", page{})

	require.Error(t, err)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestForm(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/kits", nil)
	req.PostForm = url.Values{
		"name":        {"  PA kit  "},
		"element_ids": {"9", "x", "3,4", "-1"},
	}

	f := formFromRequest(req, "element_ids")

	assert.Equal(t, "PA kit", f.Get("name"))
	assert.Equal(t, []int64{3, 4, 9}, f.selectedIDs())
	assert.True(t, f.Selected(3))
	assert.False(t, f.Selected(5))
	assert.Nil(t, f.optionalID("location_id"))
}

func TestWithQuery(t *testing.T) {
	t.Parallel()

	got := withQuery("/events/report.pdf", url.Values{"statuses": {"booked", "confirmed"}})
	assert.Equal(t, "/events/report.pdf?statuses=booked&statuses=confirmed", string(got))
}
