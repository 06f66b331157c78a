package attendance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iclockd/internal/iclock"
	"iclockd/internal/subject"
	"iclockd/internal/timing"
)

type fakeResolver struct {
	subjects map[string]*subject.Subject
	err      error
}

func (f *fakeResolver) Resolve(_ context.Context, externalID string) (*subject.Subject, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.subjects[externalID], nil
}

type fakeWindows struct {
	windows     []timing.Window
	assignments map[string]map[int64]bool // "kind/key" -> window ids
}

func (f *fakeWindows) ActiveWindows(context.Context) ([]timing.Window, error) {
	return f.windows, nil
}

func (f *fakeWindows) AssignedWindowIDs(_ context.Context, kind string, key int64) (map[int64]bool, error) {
	return f.assignments[fmt.Sprintf("%s/%d", kind, key)], nil
}

type fakeStore struct {
	events    map[string]Event
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[string]Event)}
}

func dedupKey(kind subject.Kind, key int64, date string, windowID *int64) string {
	w := "null"
	if windowID != nil {
		w = fmt.Sprintf("%d", *windowID)
	}
	return fmt.Sprintf("%s/%d/%s/%s", kind, key, date, w)
}

func (f *fakeStore) Exists(_ context.Context, kind subject.Kind, key int64, date string, windowID *int64) (bool, error) {
	_, ok := f.events[dedupKey(kind, key, date, windowID)]
	return ok, nil
}

func (f *fakeStore) Insert(_ context.Context, evt Event) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	k := dedupKey(evt.SubjectKind, evt.SubjectKey, evt.Date, evt.WindowID)
	if _, ok := f.events[k]; ok {
		return false, nil
	}
	f.events[k] = evt
	return true, nil
}

func morningSetup(t *testing.T) (*fakeResolver, *fakeWindows, *fakeStore, *Service) {
	t.Helper()
	start, err := timing.ParseTimeOfDay("08:00:00")
	require.NoError(t, err)
	end, err := timing.ParseTimeOfDay("10:00:00")
	require.NoError(t, err)

	resolver := &fakeResolver{subjects: map[string]*subject.Subject{
		"6": {Kind: subject.KindStaff, Key: 6, ExternalID: "6", DisplayName: "Alex Kim"},
	}}
	windows := &fakeWindows{
		windows: []timing.Window{{
			ID: 1, Name: "TEST_Morning_Checkin", Kind: timing.KindCheckIn,
			Start: start, End: end, GraceMinutes: 15,
			AttendanceType: timing.TypePresent, Priority: 1,
		}},
		assignments: map[string]map[int64]bool{
			"staff/6": {1: true},
		},
	}
	store := newFakeStore()
	svc := NewService(resolver, windows, store, nil, time.UTC)
	return resolver, windows, store, svc
}

func meta() iclock.BatchMeta {
	return iclock.BatchMeta{SN: "DEV001", Table: "ATTLOG", Stamp: "9999"}
}

func TestProcessBatchAcceptsAssignedPunch(t *testing.T) {
	_, _, store, svc := morningSetup(t)

	raw := []byte("6\t2024-10-30 08:30:00\t0\t0\t0\t0\t0")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, store.events, 1)
	var evt Event
	for _, e := range store.events {
		evt = e
	}
	assert.Equal(t, subject.KindStaff, evt.SubjectKind)
	assert.Equal(t, int64(6), evt.SubjectKey)
	assert.Equal(t, "2024-10-30", evt.Date)
	require.NotNil(t, evt.WindowID)
	assert.Equal(t, int64(1), *evt.WindowID)
	assert.True(t, evt.Authorized)
	assert.Equal(t, timing.TypePresent, evt.AttendanceType)
	require.NotNil(t, evt.CheckIn)
	assert.Equal(t, "08:00:00", *evt.CheckIn)
	assert.Nil(t, evt.CheckOut)
	assert.Equal(t, "Checkin - TEST_Morning_Checkin at 08:30:00", evt.Remark)
	assert.Contains(t, string(evt.DevicePayload), `"sn":"DEV001"`)
	assert.Contains(t, string(evt.DevicePayload), `"status1":0`)
}

func TestProcessBatchIdempotent(t *testing.T) {
	_, _, store, svc := morningSetup(t)

	raw := []byte("6\t2024-10-30 08:30:00\t0\t0\t0\t0\t0")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Resubmitting the identical batch inserts nothing and counts nothing.
	n, err = svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, store.events, 1)
}

func TestProcessBatchInBatchDuplicate(t *testing.T) {
	// A later line in the same batch must see the earlier line's insert.
	_, _, store, svc := morningSetup(t)

	raw := []byte("6\t2024-10-30 08:30:00\n6\t2024-10-30 08:45:00")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, store.events, 1)
}

func TestProcessBatchOperLog(t *testing.T) {
	_, _, store, svc := morningSetup(t)

	raw := []byte("line one\nline two\nline three")
	m := meta()
	m.Table = iclock.TableOperLog
	n, err := svc.ProcessBatch(context.Background(), raw, m)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, store.events)
}

func TestProcessBatchUnknownSubjectSkipped(t *testing.T) {
	_, _, store, svc := morningSetup(t)

	raw := []byte("999\t2024-10-30 08:30:00\n6\t2024-10-30 08:30:00")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, store.events, 1)
}

func TestProcessBatchUnauthorizedStillAccepted(t *testing.T) {
	_, _, store, svc := morningSetup(t)

	// 14:00 is outside the assigned window: persisted, unauthorized.
	raw := []byte("6\t2024-10-30 14:00:00")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var evt Event
	for _, e := range store.events {
		evt = e
	}
	assert.False(t, evt.Authorized)
	assert.Nil(t, evt.WindowID)
	assert.Equal(t, timing.TypePresent, evt.AttendanceType)
	assert.Equal(t, "Unauthorized time punch at 14:00:00", evt.Remark)
}

func TestProcessBatchFallbackToGlobalWindows(t *testing.T) {
	resolver, windows, store, _ := morningSetup(t)
	// Subject with no assignments matches against the full active set.
	delete(windows.assignments, "staff/6")
	svc := NewService(resolver, windows, store, nil, time.UTC)

	raw := []byte("6\t2024-10-30 08:30:00")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var evt Event
	for _, e := range store.events {
		evt = e
	}
	assert.True(t, evt.Authorized)
}

func TestProcessBatchMalformedLinesDoNotAbort(t *testing.T) {
	_, _, store, svc := morningSetup(t)

	raw := []byte("garbage\n6\tnot-a-date\n6\t2024-10-30 08:30:00")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, store.events, 1)
}

func TestProcessBatchStorageFailureAborts(t *testing.T) {
	_, _, store, svc := morningSetup(t)
	store.insertErr = errors.New("connection refused")

	raw := []byte("6\t2024-10-30 08:30:00")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestProcessBatchMultipleWindowsSameDay(t *testing.T) {
	// One subject may punch several windows per day, one event each.
	resolver, windows, store, _ := morningSetup(t)
	out, err := timing.ParseTimeOfDay("17:00:00")
	require.NoError(t, err)
	outEnd, err := timing.ParseTimeOfDay("19:00:00")
	require.NoError(t, err)
	windows.windows = append(windows.windows, timing.Window{
		ID: 2, Name: "TEST_Evening_Checkout", Kind: timing.KindCheckOut,
		Start: out, End: outEnd, AttendanceType: timing.TypePresent, Priority: 2,
	})
	windows.assignments["staff/6"][2] = true
	svc := NewService(resolver, windows, store, nil, time.UTC)

	raw := []byte("6\t2024-10-30 08:30:00\n6\t2024-10-30 17:45:00")
	n, err := svc.ProcessBatch(context.Background(), raw, meta())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.events, 2)
}
