package viewer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
)

func TestManager_CreateGetDelete(t *testing.T) {
	sched := &captureScheduler{}
	m := NewManager(sched, Options{InitialSource: pdf.URLSource("http://docs.test/initial.pdf")}, 0)
	defer m.Close()

	c, err := m.Create(pdf.Source{})
	require.NoError(t, err)
	assert.Equal(t, "http://docs.test/initial.pdf", sched.job(0).Source.Location, "empty source uses the initial document")
	assert.Equal(t, models.StatusLoading, c.Snapshot().Status)

	override, err := m.Create(pdf.URLSource("http://docs.test/override.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "http://docs.test/override.pdf", sched.job(1).Source.Location)
	assert.NotEqual(t, c.ID(), override.ID())
	assert.Equal(t, 2, m.Count())

	got, err := m.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	require.NoError(t, m.Delete(c.ID()))
	_, err = m.Get(c.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(c.ID()), ErrSessionNotFound)
}

func TestManager_CreateWithoutInitialSource(t *testing.T) {
	m := NewManager(&captureScheduler{}, Options{}, 0)
	defer m.Close()

	c, err := m.Create(pdf.Source{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusIdle, c.Snapshot().Status)
}

func TestManager_Expire(t *testing.T) {
	m := NewManager(&captureScheduler{}, Options{}, time.Minute)
	defer m.Close()

	c, err := m.Create(pdf.Source{})
	require.NoError(t, err)

	assert.Equal(t, 0, m.expire(time.Now()))
	assert.Equal(t, 1, m.expire(time.Now().Add(2*time.Minute)))

	_, err = m.Get(c.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
