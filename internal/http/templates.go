package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/example/event-manager/internal/application"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	displayTimeLayout = "Mon 02 Jan 2006 15:04"
	displayDateLayout = "02 Jan 2006"
	inputTimeLayout   = "2006-01-02T15:04"
	inputDateLayout   = "2006-01-02"
)

// Pages renders the embedded HTML templates. Times are displayed in the
// configured location.
type Pages struct {
	tmpl *template.Template
	loc  *time.Location
}

// NewPages parses the embedded templates.
func NewPages(loc *time.Location) (*Pages, error) {
	if loc == nil {
		loc = time.Local
	}
	p := &Pages{loc: loc}

	funcMap := template.FuncMap{
		"statusLabel": application.StatusLabel,
		"title": func(s string) string {
			return cases.Title(language.English).String(s)
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(p.loc).Format(displayTimeLayout)
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(p.loc).Format(displayDateLayout)
		},
		"money": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"kitValue": application.KitValue,
		"deleteForm": func(token, action string) deleteForm {
			return deleteForm{Action: action, CSRFToken: token}
		},
		"derefInt64": func(v *int64) int64 {
			if v == nil {
				return 0
			}
			return *v
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	p.tmpl = tmpl
	return p, nil
}

// Location returns the display location.
func (p *Pages) Location() *time.Location {
	return p.loc
}

// Render executes the named template into a buffer before writing, so a
// template failure never produces a half written page.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data page) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute template %q: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// page is the data passed to every template.
type page struct {
	Title     string
	Principal application.Principal
	Message   string
	Action    string
	Editing   bool
	Form      form
	Errors    map[string]string
	Data      any
	Status    int
	CSRFToken string
}

// deleteForm feeds the delete_button template.
type deleteForm struct {
	Action    string
	CSRFToken string
}

// form holds submitted or stored field values for re-rendering.
type form struct {
	values   map[string]string
	selected map[int64]bool
}

func newForm(values map[string]string, selected ...int64) form {
	f := form{values: values, selected: make(map[int64]bool, len(selected))}
	if f.values == nil {
		f.values = map[string]string{}
	}
	for _, id := range selected {
		f.selected[id] = true
	}
	return f
}

// formFromRequest copies the first value of every posted field. Values of
// multiKey are parsed as ids; non-numeric entries are ignored.
func formFromRequest(r *http.Request, multiKey string) form {
	values := make(map[string]string, len(r.PostForm))
	for key, vals := range r.PostForm {
		if len(vals) > 0 {
			values[key] = vals[0]
		}
	}
	var ids []int64
	if multiKey != "" {
		ids = parseIDs(r.PostForm[multiKey])
	}
	return newForm(values, ids...)
}

// Get returns the trimmed value of key.
func (f form) Get(key string) string {
	return strings.TrimSpace(f.values[key])
}

// Is reports whether key holds id.
func (f form) Is(key string, id int64) bool {
	return f.Get(key) == strconv.FormatInt(id, 10)
}

// Selected reports whether id was chosen in the multi-value field.
func (f form) Selected(id int64) bool {
	return f.selected[id]
}

func (f form) optionalID(key string) *int64 {
	id, err := strconv.ParseInt(f.Get(key), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (f form) selectedIDs() []int64 {
	ids := make([]int64, 0, len(f.selected))
	for id := range f.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil && id > 0 {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func withQuery(path string, query url.Values) template.URL {
	u := url.URL{Path: path, RawQuery: query.Encode()}
	return template.URL(u.String())
}
