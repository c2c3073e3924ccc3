// Package session owns the state of one labeling session: the uploaded
// table, the current working table, display settings, and the label map.
// It replaces the original tool's ambient UI-session globals with one
// struct that handlers mutate under a lock.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/lanelab/frameview/internal/frame"
	"github.com/lanelab/frameview/internal/labelstore"
	"github.com/lanelab/frameview/internal/query"
	"github.com/lanelab/frameview/internal/table"
)

// Display types for column rendering.
const (
	DisplayText   = "Text"
	DisplayNumber = "Number"
	DisplayImage  = "Image"
)

// ValidDisplayType checks a display type string.
func ValidDisplayType(t string) bool {
	return t == DisplayText || t == DisplayNumber || t == DisplayImage
}

// Session holds all mutable per-session state. The zero page settings
// are filled in by New.
type Session struct {
	mu     sync.Mutex
	labels *labelstore.Store

	original      *table.Table
	current       *table.Table
	modelVersions []string

	displayTypes map[string]string
	columnLabels map[string]string

	page        int
	rowsPerPage int

	sortColumn    string
	sortAscending bool

	sqlQuery  string
	newColSQL string
}

// New creates a session over the given label store.
func New(labels *labelstore.Store, rowsPerPage int) *Session {
	if rowsPerPage < 1 {
		rowsPerPage = 1
	}
	return &Session{
		labels:       labels,
		displayTypes: make(map[string]string),
		columnLabels: make(map[string]string),
		page:         1,
		rowsPerPage:  rowsPerPage,
	}
}

// Upload loads a new CSV into the session. Historical labels are
// attached to rows by frame key; rows without a stored label get the
// default label. Display settings, sorting and pagination reset.
func (s *Session) Upload(r io.Reader) error {
	t, err := table.Read(r)
	if err != nil {
		return err
	}
	models, err := frame.ModelVersions(t)
	if err != nil {
		return err
	}
	if err := attachLabels(t, models, s.labels); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = t
	s.current = t.Clone()
	s.modelVersions = models
	s.displayTypes = make(map[string]string)
	s.columnLabels = make(map[string]string)
	s.page = 1
	s.sortColumn = ""
	s.sortAscending = true
	s.sqlQuery = ""
	s.newColSQL = ""
	return nil
}

// attachLabels writes the label column, defaulting every row and then
// overriding from the store by frame key. An existing label column (a
// re-uploaded export) is overwritten; the store is the source of truth.
// Key derivation here must match SetLabel and the exporter exactly.
func attachLabels(t *table.Table, models []string, labels *labelstore.Store) error {
	cells := make([]string, t.Len())
	for i := range cells {
		cells[i] = frame.DefaultLabel
		key, err := frame.RowKey(t, i, models)
		if err != nil {
			return err
		}
		if l, ok := labels.Get(key); ok {
			cells[i] = l
		}
	}
	return t.SetColumn(frame.LabelColumn, cells)
}

// Loaded reports whether a table has been uploaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// ModelVersions returns the ordered model versions of the loaded table.
func (s *Session) ModelVersions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.modelVersions...)
}

// ApplySQL resets the working table to the original upload and runs the
// query against it. On success the result becomes the working table and
// pagination resets; on failure the working table is unchanged and the
// engine's error is returned.
func (s *Session) ApplySQL(ctx context.Context, sqlText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return fmt.Errorf("no table loaded")
	}
	result, err := query.Run(ctx, s.original, sqlText)
	if err != nil {
		return err
	}
	s.current = result
	s.sqlQuery = sqlText
	s.page = 1
	s.sortColumn = ""
	return nil
}

// AddComputedColumn runs the query against the current working table,
// replacing it on success. Unlike ApplySQL it does not reset to the
// original first, so computed columns stack.
func (s *Session) AddComputedColumn(ctx context.Context, sqlText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fmt.Errorf("no table loaded")
	}
	result, err := query.Run(ctx, s.current, sqlText)
	if err != nil {
		return err
	}
	s.current = result
	s.newColSQL = sqlText
	s.page = 1
	return nil
}

// Reset restores the working table to the original upload.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return fmt.Errorf("no table loaded")
	}
	s.current = s.original.Clone()
	s.page = 1
	s.sortColumn = ""
	return nil
}

// SetLabel records a label for the frame and rewrites the label file.
// Both the working and original tables are updated in place so the label
// survives reset and re-sort.
func (s *Session) SetLabel(frameID, label string) error {
	if !frame.ValidLabel(label) {
		return fmt.Errorf("invalid label %q", label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fmt.Errorf("no table loaded")
	}
	key := frame.Key(s.modelVersions, frameID)
	if err := s.labels.Set(key, label); err != nil {
		return err
	}
	updateLabelCells(s.current, frameID, label)
	updateLabelCells(s.original, frameID, label)
	return nil
}

// updateLabelCells sets the label cell of every row whose frame id
// matches. Tables without a label column (e.g. after a SELECT that
// dropped it) are left alone.
func updateLabelCells(t *table.Table, frameID, label string) {
	if !t.HasColumn(frame.LabelColumn) {
		return
	}
	for i := 0; i < t.Len(); i++ {
		id, err := frame.ID(t, i)
		if err != nil {
			return
		}
		if id == frameID {
			t.SetCell(i, frame.LabelColumn, label)
		}
	}
}

// SetDisplayType sets a column's display type (Text, Number, Image).
func (s *Session) SetDisplayType(column, displayType string) error {
	if !ValidDisplayType(displayType) {
		return fmt.Errorf("invalid display type %q", displayType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayTypes[column] = displayType
	return nil
}

// SetColumnLabel overrides a column's display header.
func (s *Session) SetColumnLabel(column, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columnLabels[column] = label
}

// ToggleSort sorts by the column, flipping direction when the same
// column is toggled twice.
func (s *Session) ToggleSort(column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sortColumn == column {
		s.sortAscending = !s.sortAscending
	} else {
		s.sortColumn = column
		s.sortAscending = true
	}
}

// SetPage sets the 1-based current page, clamped by the caller's view.
func (s *Session) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	s.page = page
}

// SetRowsPerPage sets the page size and resets to the first page.
func (s *Session) SetRowsPerPage(rows int) error {
	if rows < 1 || rows > 100 {
		return fmt.Errorf("rows per page must be between 1 and 100")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowsPerPage = rows
	s.page = 1
	return nil
}

// View is a snapshot of the working table prepared for display.
type View struct {
	Columns       []string          `json:"columns"`
	ColumnLabels  map[string]string `json:"column_labels"`
	DisplayTypes  map[string]string `json:"display_types"`
	Rows          [][]string        `json:"rows"`
	FrameIDs      []string          `json:"frame_ids"`
	Page          int               `json:"page"`
	TotalPages    int               `json:"total_pages"`
	TotalRows     int               `json:"total_rows"`
	RowsPerPage   int               `json:"rows_per_page"`
	SortColumn    string            `json:"sort_column,omitempty"`
	SortAscending bool              `json:"sort_ascending"`
	ModelVersions []string          `json:"model_versions"`
	FrameLabels   []string          `json:"frame_labels"`
	SQLQuery      string            `json:"sql_query,omitempty"`
	NewColSQL     string            `json:"new_col_sql,omitempty"`
}

// CurrentView returns the current page of the working table with sorting
// applied. The stored table is not reordered; sorting happens on a copy
// at view time.
func (s *Session) CurrentView() (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, fmt.Errorf("no table loaded")
	}
	t := s.current
	if s.sortColumn != "" && t.HasColumn(s.sortColumn) {
		sorted, err := t.Sort(s.sortColumn, s.sortAscending)
		if err == nil {
			t = sorted
		}
	}

	page := s.page
	total := t.PageCount(s.rowsPerPage)
	if total > 0 && page > total {
		page = total
	}
	rows := t.Page(page, s.rowsPerPage)

	view := &View{
		Columns:       append([]string(nil), t.Columns...),
		ColumnLabels:  copyMap(s.columnLabels),
		DisplayTypes:  copyMap(s.displayTypes),
		Rows:          rows,
		Page:          page,
		TotalPages:    total,
		TotalRows:     t.Len(),
		RowsPerPage:   s.rowsPerPage,
		SortColumn:    s.sortColumn,
		SortAscending: s.sortAscending,
		ModelVersions: append([]string(nil), s.modelVersions...),
		FrameLabels:   append([]string(nil), frame.Labels...),
		SQLQuery:      s.sqlQuery,
		NewColSQL:     s.newColSQL,
	}

	start := (page - 1) * s.rowsPerPage
	view.FrameIDs = make([]string, len(rows))
	for i := range rows {
		if id, err := frame.ID(t, start+i); err == nil {
			view.FrameIDs[i] = id
		}
	}
	return view, nil
}

// Current returns the working table (not a copy; callers must not
// mutate it).
func (s *Session) Current() *table.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
