// internal/domain/appointment/service_test.go
package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore backs Confirm with in-memory slot arbitration. slotHolder
// plays the role of the unique index on confirmed slots: the first
// claim wins, later claims get ErrSlotTaken. With staleCheck set,
// slotConfirmed reports the slot free even when it is held, the view a
// settlement gets when another settlement commits between its check
// and its claim.
type fakeStore struct {
	appointments map[string]*Appointment
	slotHolder   map[string]uint
	staleCheck   bool
	claims       int
	cancels      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments: make(map[string]*Appointment),
		slotHolder:   make(map[string]uint),
	}
}

func (f *fakeStore) add(a *Appointment) {
	f.appointments[a.AppointmentCode] = a
	if a.Status == StatusConfirmed {
		f.slotHolder[a.SlotKey()] = a.ID
	}
}

func (f *fakeStore) getByCode(ctx context.Context, code string) (*Appointment, error) {
	a, ok := f.appointments[code]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

func (f *fakeStore) slotConfirmed(ctx context.Context, consultantID uint, date, slot string, excludeID uint) (bool, error) {
	if f.staleCheck {
		return false, nil
	}
	key := (&Appointment{ConsultantID: consultantID, ScheduledDate: date, ScheduledTime: slot}).SlotKey()
	holder, held := f.slotHolder[key]
	return held && holder != excludeID, nil
}

func (f *fakeStore) claimSlot(ctx context.Context, a *Appointment) (bool, error) {
	if a.Status != StatusPending {
		return false, nil
	}
	if holder, held := f.slotHolder[a.SlotKey()]; held && holder != a.ID {
		return false, ErrSlotTaken
	}
	now := time.Now()
	a.Status = StatusConfirmed
	a.ConfirmedAt = &now
	f.slotHolder[a.SlotKey()] = a.ID
	f.claims++
	return true, nil
}

func (f *fakeStore) cancelPending(ctx context.Context, id uint) error {
	for _, a := range f.appointments {
		if a.ID == id && a.Status == StatusPending {
			now := time.Now()
			a.Status = StatusCancelled
			a.CancelledAt = &now
			f.cancels++
		}
	}
	return nil
}

func testAppointmentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestService(store *fakeStore) *Service {
	return &Service{
		logger: testAppointmentLogger(),
		store:  store,
	}
}

func pendingAppointment(id uint, code string) *Appointment {
	return &Appointment{
		ID:              id,
		AppointmentCode: code,
		UserID:          id,
		ConsultantID:    3,
		ScheduledDate:   "2026-09-10",
		ScheduledTime:   "14:00",
		Status:          StatusPending,
	}
}

func TestConfirmClaimsSlot(t *testing.T) {
	store := newFakeStore()
	booked := pendingAppointment(1, "APT-20260910-AAAAAAAA")
	store.add(booked)

	svc := newTestService(store)
	require.NoError(t, svc.Confirm(context.Background(), booked.AppointmentCode))

	assert.Equal(t, StatusConfirmed, booked.Status)
	assert.NotNil(t, booked.ConfirmedAt)
	assert.Equal(t, 1, store.claims)
	assert.Equal(t, 0, store.cancels)
}

func TestConfirmFirstPaidWins(t *testing.T) {
	store := newFakeStore()
	first := pendingAppointment(1, "APT-20260910-AAAAAAAA")
	second := pendingAppointment(2, "APT-20260910-BBBBBBBB")
	store.add(first)
	store.add(second)

	svc := newTestService(store)
	require.NoError(t, svc.Confirm(context.Background(), first.AppointmentCode))
	require.NoError(t, svc.Confirm(context.Background(), second.AppointmentCode))

	assert.Equal(t, StatusConfirmed, first.Status)
	assert.Equal(t, StatusCancelled, second.Status)
	assert.Equal(t, 1, store.claims)
	assert.Equal(t, 1, store.cancels)
}

// Two settlements for the same slot can interleave so that both see
// the slot free before either commits. The claim itself must then
// arbitrate: the loser is cancelled, never confirmed alongside the
// winner.
func TestConfirmCancelsWhenClaimLosesRace(t *testing.T) {
	store := newFakeStore()
	winner := pendingAppointment(1, "APT-20260910-AAAAAAAA")
	winner.Status = StatusConfirmed
	store.add(winner)

	loser := pendingAppointment(2, "APT-20260910-BBBBBBBB")
	store.add(loser)

	// The availability check is stale: it still reports the slot free
	store.staleCheck = true

	svc := newTestService(store)
	require.NoError(t, svc.Confirm(context.Background(), loser.AppointmentCode))

	assert.Equal(t, StatusCancelled, loser.Status)
	assert.Equal(t, StatusConfirmed, winner.Status)
	assert.Equal(t, 0, store.claims)
	assert.Equal(t, 1, store.cancels)
}

func TestConfirmIgnoresSettledBookings(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	for _, status := range []Status{StatusConfirmed, StatusCancelled, StatusCompleted} {
		booked := pendingAppointment(1, "APT-20260910-AAAAAAAA")
		booked.Status = status
		store.appointments[booked.AppointmentCode] = booked

		require.NoError(t, svc.Confirm(context.Background(), booked.AppointmentCode))
		assert.Equal(t, status, booked.Status)
	}
	assert.Equal(t, 0, store.claims)
	assert.Equal(t, 0, store.cancels)
}

func TestConfirmUnknownCode(t *testing.T) {
	svc := newTestService(newFakeStore())
	err := svc.Confirm(context.Background(), "APT-20260910-MISSING1")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
