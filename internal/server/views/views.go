// Package views renders the HTML pages of the record store.
//
// Forms post back to the same paths and redirect with 303 See Other on
// success, so a reload never resubmits.
package views

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/maruel/salesdb/internal/csvdb"
	"github.com/maruel/salesdb/internal/server/dto"
	"github.com/maruel/salesdb/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{"num": num}

var (
	indexPage    = parse("index.html")
	addPage      = parse("add.html")
	editPage     = parse("edit.html")
	cleaningPage = parse("data_cleaning.html")
)

func parse(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// Kinds offered by the coercion form.
var coerceKinds = []string{"int", "float", "datetime", "date", "Int64", "float64", "boolean", "str"}

type addField struct {
	name    string
	integer bool
}

// requiredAddFields are checked by the add form.
var requiredAddFields = []addField{
	{"ORDERNUMBER", true},
	{"QUANTITYORDERED", true},
	{"PRICEEACH", false},
}

// Handler serves the HTML pages.
type Handler struct {
	svc          *storage.RecordService
	maxBodyBytes int64
}

// New returns a Handler. Form bodies larger than maxBodyBytes are rejected
// when it is positive.
func New(svc *storage.RecordService, maxBodyBytes int64) *Handler {
	return &Handler{svc: svc, maxBodyBytes: maxBodyBytes}
}

type page struct {
	Title string
	Error string
}

type table struct {
	Columns []string
	Rows    []csvdb.RenderedRow
}

// Index shows the summary and the ten most recent rows.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := h.svc.Analyze(ctx)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	rows, err := h.svc.ListRows(ctx, dto.DefaultRowLimit, "", false)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	render(ctx, w, http.StatusOK, indexPage, struct {
		page
		Summary *storage.Analysis
		Table   table
	}{page{Title: "Sales overview"}, a, table{Columns: a.Columns, Rows: rows}})
}

type addData struct {
	page
	Form     url.Values
	Optional []string
}

// AddForm shows the empty add form.
func (h *Handler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderAdd(r.Context(), w, http.StatusOK, url.Values{}, "")
}

// Add appends the posted record.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, ok := h.readForm(w, r)
	if !ok {
		return
	}
	for _, f := range requiredAddFields {
		if msg := checkNumber(form, f.name, f.integer); msg != "" {
			h.renderAdd(ctx, w, http.StatusBadRequest, form, msg)
			return
		}
	}
	id, err := h.svc.AddRow(ctx, formFields(form))
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "Added row", "id", id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderAdd(ctx context.Context, w http.ResponseWriter, status int, form url.Values, msg string) {
	var optional []string
	for _, c := range dto.WellKnownColumns() {
		if !slices.ContainsFunc(requiredAddFields, func(f addField) bool { return f.name == c }) {
			optional = append(optional, c)
		}
	}
	render(ctx, w, status, addPage, addData{page{Title: "Add record", Error: msg}, form, optional})
}

// EditForm shows one row for editing.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	row, ok, err := h.svc.GetRow(ctx, id)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	if !ok {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	render(ctx, w, http.StatusOK, editPage, struct {
		page
		ID  int64
		Row csvdb.RenderedRow
	}{page{Title: "Edit record " + strconv.FormatInt(id, 10)}, id, row})
}

// Edit overwrites the row with the posted fields.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, ok := h.readForm(w, r)
	if !ok {
		return
	}
	found, err := h.svc.UpdateRow(ctx, id, formFields(form))
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	if !found {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type cleaningData struct {
	page
	Columns    []string
	Kinds      []string
	Subset     string
	Duplicates *table
}

// Cleaning shows the cleaning forms.
func (h *Handler) Cleaning(w http.ResponseWriter, r *http.Request) {
	h.renderCleaning(w, r, nil, "")
}

// Duplicates shows the cleaning forms followed by the duplicate rows.
func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subset := dto.DuplicatesRequest{Columns: r.URL.Query().Get("columns")}
	rows, err := h.svc.FindDuplicates(ctx, subset.Subset())
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	if rows == nil {
		rows = []csvdb.RenderedRow{}
	}
	h.renderCleaning(w, r, rows, subset.Columns)
}

// renderCleaning shows the forms, and the duplicate table when dup is not nil.
func (h *Handler) renderCleaning(w http.ResponseWriter, r *http.Request, dup []csvdb.RenderedRow, subset string) {
	ctx := r.Context()
	cols, err := h.svc.Columns(ctx)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	data := cleaningData{
		page:    page{Title: "Data cleaning"},
		Columns: cols,
		Kinds:   coerceKinds,
		Subset:  subset,
	}
	if dup != nil {
		data.Duplicates = &table{Columns: cols, Rows: dup}
	}
	render(ctx, w, http.StatusOK, cleaningPage, data)
}

// DropDuplicates removes repeated rows.
func (h *Handler) DropDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, ok := h.readForm(w, r)
	if !ok {
		return
	}
	req := dto.DropDuplicatesRequest{Columns: form.Get("columns")}
	n, err := h.svc.DropDuplicates(ctx, req.Subset())
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "Dropped duplicates", "removed", n)
	http.Redirect(w, r, "/data_cleaning", http.StatusSeeOther)
}

// FillMissing fills a column with the posted value, "" when absent.
func (h *Handler) FillMissing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, ok := h.readForm(w, r)
	if !ok {
		return
	}
	col := strings.TrimSpace(form.Get("column"))
	if col == "" {
		http.Error(w, "column is required", http.StatusBadRequest)
		return
	}
	n, err := h.svc.FillMissing(ctx, col, csvdb.String(form.Get("value")))
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "Filled missing", "column", col, "filled", n)
	http.Redirect(w, r, "/data_cleaning", http.StatusSeeOther)
}

// Coerce converts a column. A rejected conversion still redirects.
func (h *Handler) Coerce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, ok := h.readForm(w, r)
	if !ok {
		return
	}
	req := dto.CoerceRequest{Column: form.Get("column"), Dtype: form.Get("dtype")}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	done, err := h.svc.CoerceColumnType(ctx, req.Column, req.Dtype)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "Coerced column", "column", req.Column, "dtype", req.Dtype, "ok", done)
	http.Redirect(w, r, "/data_cleaning", http.StatusSeeOther)
}

// readForm parses the request body. Returns false when an error was written.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return nil, false
	}
	return r.PostForm, true
}

// fail reports a store error: unknown columns are the caller's fault.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, csvdb.ErrUnknownColumn) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.ErrorContext(ctx, "Page failed", "err", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// render executes the page into a buffer first so a template error never
// produces a half written page.
func render(ctx context.Context, w http.ResponseWriter, status int, t *template.Template, data any) {
	var b bytes.Buffer
	if err := t.ExecuteTemplate(&b, "layout", data); err != nil {
		slog.ErrorContext(ctx, "Failed to render page", "err", err, "page", t.Name())
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = b.WriteTo(w)
}

// checkNumber returns an error message when the form field is not a number.
func checkNumber(form url.Values, name string, integer bool) string {
	s := strings.TrimSpace(form.Get(name))
	if s == "" {
		return name + " is required"
	}
	var err error
	if integer {
		_, err = strconv.ParseInt(s, 10, 64)
	} else {
		_, err = strconv.ParseFloat(s, 64)
	}
	if err != nil {
		if integer {
			return name + " must be an integer"
		}
		return name + " must be a number"
	}
	return ""
}

// formFields keeps every posted field as text, sorted by name. The store
// infers the types when the file is read back.
func formFields(form url.Values) csvdb.Fields {
	m := make(map[string]any, len(form))
	for k := range form {
		m[k] = form.Get(k)
	}
	return csvdb.FieldsFromMap(m)
}

// num formats a statistic with two decimals.
func num(x any) string {
	switch v := x.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case *float64:
		if v != nil {
			return strconv.FormatFloat(*v, 'f', 2, 64)
		}
	}
	return ""
}
