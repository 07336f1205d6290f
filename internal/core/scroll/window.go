package scroll

import "github.com/penwyp/go-heatmap-monitor/internal/core/model"

// Window is the bounded run of revealed columns currently on screen, oldest first.
type Window struct {
	columns  []*model.Column
	capacity int
}

// NewWindow creates a window holding at most capacity columns.
func NewWindow(capacity int) *Window {
	if capacity < 0 {
		capacity = 0
	}
	return &Window{columns: make([]*model.Column, 0, capacity+1), capacity: capacity}
}

// Len returns the number of columns in the window.
func (w *Window) Len() int { return len(w.columns) }

// Cap returns the maximum number of columns.
func (w *Window) Cap() int { return w.capacity }

// PushNew appends col at the new end, dropping the oldest column when over capacity.
func (w *Window) PushNew(col *model.Column) (dropped *model.Column) {
	w.columns = append(w.columns, col)
	if len(w.columns) > w.capacity {
		dropped = w.columns[0]
		copy(w.columns, w.columns[1:])
		w.columns[len(w.columns)-1] = nil
		w.columns = w.columns[:len(w.columns)-1]
	}
	return dropped
}

// ShiftBack inserts col at the old end and drops the newest column.
func (w *Window) ShiftBack(col *model.Column) (dropped *model.Column) {
	if len(w.columns) > 0 {
		dropped = w.columns[len(w.columns)-1]
		w.columns[len(w.columns)-1] = nil
		w.columns = w.columns[:len(w.columns)-1]
	}
	if w.capacity == 0 {
		return dropped
	}
	w.columns = append(w.columns, nil)
	copy(w.columns[1:], w.columns)
	w.columns[0] = col
	return dropped
}

// Columns returns a copy of the window, oldest first.
func (w *Window) Columns() []*model.Column {
	out := make([]*model.Column, len(w.columns))
	copy(out, w.columns)
	return out
}

// Newest returns the most recently revealed column in view, or nil.
func (w *Window) Newest() *model.Column {
	if len(w.columns) == 0 {
		return nil
	}
	return w.columns[len(w.columns)-1]
}

func (w *Window) Reset() {
	for i := range w.columns {
		w.columns[i] = nil
	}
	w.columns = w.columns[:0]
}
