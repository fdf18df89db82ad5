// Package http provides the HTML handlers, the calendar JSON API and the
// middleware of the event manager.
//
// Every route except /login, /logout, /healthz, /metrics and /static/ runs
// behind RequireSession and a RequireCapability gate declared in the route
// table of router.go. Resource blueprints share one layout:
//
//   - GET /<res>: list.
//   - GET /<res>/new and POST /<res>/new (or POST /<res>): create form. A
//     successful create redirects (303) to the list; validation failures
//     re-render the form with status 422.
//   - GET /<res>/{id}/edit and POST /<res>/{id}/edit: update form.
//   - POST /<res>/{id}/delete: delete.
//
// Events add POST /events/{id}/status, GET /events/{id}/report.pdf,
// GET /events/report.pdf and GET /api/events, which returns a JSON array of
// calendarEventDTO values filtered by start, end, categories and statuses.
package http
