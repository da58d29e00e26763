package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/quiz"
	"github.com/i474232898/warming-map/internal/store"
)

func TestManager_NewAndGet(t *testing.T) {
	m := NewManager(0, time.Hour, clockwork.NewFakeClock())

	st := m.New()
	assert.Len(t, st.ID, 36)
	assert.Nil(t, st.Click)
	assert.True(t, st.Selector.IsAnnual())

	got, err := m.Get(st.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	_, err = m.Get("not-a-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = m.Get("7f1f0d3e-8b6f-4d43-9c38-4b0e6a4a9a11")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestManager_UpdateIsolatesCopies(t *testing.T) {
	m := NewManager(0, 0, nil)
	st := m.New()

	updated, err := m.Update(st.ID, func(s *State) error {
		s.Click = &climate.Click{Lat: 45.6, Lon: 12.3}
		s.ID = "hijack"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, st.ID, updated.ID)

	updated.Click.Lat = 0
	again, err := m.Get(st.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.6, again.Click.Lat)
}

func TestManager_FailedUpdateKeepsState(t *testing.T) {
	m := NewManager(0, 0, nil)
	st := m.New()

	_, err := m.Update(st.ID, func(s *State) error {
		require.NoError(t, s.Quiz.Start(quiz.DefaultBank(), 5, nil))
		return nil
	})
	require.NoError(t, err)

	_, err = m.Update(st.ID, func(s *State) error {
		_, err := s.Quiz.Submit("Z")
		s.Click = &climate.Click{Lat: 1, Lon: 1}
		return err
	})
	assert.ErrorIs(t, err, quiz.ErrInvalidOption)

	got, err := m.Get(st.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Click)
	assert.False(t, got.Quiz.Answered)
	assert.Len(t, got.Quiz.Questions, 5)
}

func TestManager_ExpiresIdleSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(0, 10*time.Minute, clock)

	idle := m.New()
	active := m.New()

	clock.Advance(8 * time.Minute)
	_, err := m.Update(active.ID, func(*State) error { return nil })
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = m.Get(active.ID)
	assert.NoError(t, err)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestManager_ConcurrentUpdatesSerialise(t *testing.T) {
	m := NewManager(0, 0, nil)
	st := m.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(st.ID, func(s *State) error {
				s.Year++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Get(st.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Year)

	boom := errors.New("boom")
	_, err = m.Update(st.ID, func(*State) error { return boom })
	assert.ErrorIs(t, err, boom)
}
