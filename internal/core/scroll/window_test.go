package scroll

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

func col(key float64) *model.Column { return &model.Column{Key: key} }

func TestWindowPushNew(t *testing.T) {
	w := NewWindow(2)
	assert.Nil(t, w.PushNew(col(1)))
	assert.Nil(t, w.PushNew(col(2)))

	dropped := w.PushNew(col(3))
	assert.Equal(t, float64(1), dropped.Key)
	assert.Equal(t, []float64{2, 3}, keys(w.Columns()))
	assert.Equal(t, float64(3), w.Newest().Key)
	assert.Equal(t, 2, w.Cap())
}

func TestWindowShiftBack(t *testing.T) {
	w := NewWindow(3)
	for _, k := range []float64{2, 3, 4} {
		w.PushNew(col(k))
	}

	dropped := w.ShiftBack(col(1))
	assert.Equal(t, float64(4), dropped.Key)
	assert.Equal(t, []float64{1, 2, 3}, keys(w.Columns()))
}

func TestWindowZeroCapacity(t *testing.T) {
	w := NewWindow(0)
	dropped := w.PushNew(col(1))
	assert.Equal(t, float64(1), dropped.Key)
	assert.Equal(t, 0, w.Len())
	assert.Nil(t, w.ShiftBack(col(0)))
	assert.Equal(t, 0, w.Len())
	assert.Nil(t, w.Newest())
}

func TestWindowColumnsIsCopy(t *testing.T) {
	w := NewWindow(2)
	w.PushNew(col(1))
	cols := w.Columns()
	cols[0] = col(99)
	assert.Equal(t, float64(1), w.Columns()[0].Key)

	w.Reset()
	assert.Equal(t, 0, w.Len())
}
