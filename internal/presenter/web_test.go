package presenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for surface event")
		return Event{}
	}
}

func TestWebSurfaceIcon(t *testing.T) {
	s := NewWebSurface(zap.NewNop())
	assert.Equal(t, IconNormal, s.Icon())

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.SetIcon(IconWarning))
	assert.Equal(t, IconWarning, s.Icon())

	ev := waitForEvent(t, ch)
	assert.Equal(t, EventIcon, ev.Kind)
	assert.Equal(t, "warning", ev.Icon)
}

func TestWebSurfaceNotifications(t *testing.T) {
	s := NewWebSurface(zap.NewNop())

	ch, cancel := s.Subscribe()
	defer cancel()

	n := Notification{Title: "Missile Warning", Message: "Tel Aviv"}
	require.NoError(t, s.CreateNotification("missile-warning", n))

	ev := waitForEvent(t, ch)
	assert.Equal(t, EventNotification, ev.Kind)
	assert.Equal(t, "missile-warning", ev.NotificationID)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, n, *ev.Notification)

	active := s.Notifications()
	require.Len(t, active, 1)
	assert.Equal(t, n, active["missile-warning"])

	// Same id replaces, not stacks.
	n2 := Notification{Title: "Missile Warning", Message: "Haifa"}
	require.NoError(t, s.CreateNotification("missile-warning", n2))
	assert.Len(t, s.Notifications(), 1)
	waitForEvent(t, ch)

	require.NoError(t, s.ClearNotification("missile-warning"))
	ev = waitForEvent(t, ch)
	assert.Equal(t, EventNotificationCleared, ev.Kind)
	assert.Empty(t, s.Notifications())
}

func TestWebSurfaceClearUnknownNotification(t *testing.T) {
	s := NewWebSurface(zap.NewNop())

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.ClearNotification("never-created"))

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event for no-op clear: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebSurfaceCreatePopup(t *testing.T) {
	s := NewWebSurface(zap.NewNop())

	ch, cancel := s.Subscribe()
	defer cancel()

	w, err := s.CreatePopup("http://127.0.0.1:7931/popup", PopupWidth, PopupHeight)
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, WindowTypePopup, w.Type)

	ev := waitForEvent(t, ch)
	assert.Equal(t, EventOpenPopup, ev.Kind)
	assert.Equal(t, w.ID, ev.WindowID)
	assert.Equal(t, PopupWidth, ev.Width)
	assert.Equal(t, PopupHeight, ev.Height)

	windows, err := s.ListWindows()
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, w, windows[0])
}

func TestWebSurfaceFocusWindow(t *testing.T) {
	s := NewWebSurface(zap.NewNop())

	w, err := s.CreatePopup("http://127.0.0.1:7931/popup", PopupWidth, PopupHeight)
	require.NoError(t, err)

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.FocusWindow(w.ID))
	ev := waitForEvent(t, ch)
	assert.Equal(t, EventFocusPopup, ev.Kind)
	assert.Equal(t, w.ID, ev.WindowID)
}

func TestWebSurfaceFocusUnknownWindow(t *testing.T) {
	s := NewWebSurface(zap.NewNop())

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.FocusWindow("nope"))

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event for unknown window: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebSurfaceRegisterAndCloseWindow(t *testing.T) {
	s := NewWebSurface(zap.NewNop())

	w := s.RegisterWindow(Window{Type: WindowTypePopup, URL: "http://127.0.0.1:7931/popup"})
	assert.NotEmpty(t, w.ID, "an id is assigned when absent")

	windows, err := s.ListWindows()
	require.NoError(t, err)
	assert.Len(t, windows, 1)

	s.CloseWindow(w.ID)
	windows, err = s.ListWindows()
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestWebSurfaceSubscribeCancel(t *testing.T) {
	s := NewWebSurface(zap.NewNop())

	ch, cancel := s.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancellation must not panic.
	require.NoError(t, s.SetIcon(IconError))
}
