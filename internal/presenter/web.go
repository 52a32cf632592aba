package presenter

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventKind tags one surface event delivered to connected UI sessions.
type EventKind string

const (
	EventIcon                EventKind = "icon"
	EventNotification        EventKind = "notification"
	EventNotificationCleared EventKind = "notification-cleared"
	EventOpenPopup           EventKind = "open-popup"
	EventFocusPopup          EventKind = "focus-popup"
)

// Event is one presentation change streamed to the popup UI.
type Event struct {
	Kind           EventKind     `json:"kind"`
	Icon           string        `json:"icon,omitempty"`
	NotificationID string        `json:"notificationId,omitempty"`
	Notification   *Notification `json:"notification,omitempty"`
	WindowID       string        `json:"windowId,omitempty"`
	URL            string        `json:"url,omitempty"`
	Width          int           `json:"width,omitempty"`
	Height         int           `json:"height,omitempty"`
}

// WebSurface is the production presentation surface: it holds the current
// icon state, active notifications, and the popup window inventory, and
// streams every change to subscribed UI sessions. Popup windows created
// here are realized by whichever session receives the open-popup event;
// the window record is kept either way so a second cycle focuses instead
// of duplicating.
type WebSurface struct {
	logger *zap.Logger

	mu            sync.RWMutex
	icon          IconState
	notifications map[string]Notification
	windows       map[string]Window
	subscribers   map[int]chan Event
	nextSubID     int
}

// NewWebSurface creates a surface in the Normal icon state with no windows.
func NewWebSurface(logger *zap.Logger) *WebSurface {
	return &WebSurface{
		logger:        logger,
		icon:          IconNormal,
		notifications: make(map[string]Notification),
		windows:       make(map[string]Window),
		subscribers:   make(map[int]chan Event),
	}
}

// SetIcon records the active icon state and streams the change.
func (s *WebSurface) SetIcon(state IconState) error {
	s.mu.Lock()
	s.icon = state
	s.mu.Unlock()

	s.publish(Event{Kind: EventIcon, Icon: state.String()})
	return nil
}

// Icon returns the currently active icon state.
func (s *WebSurface) Icon() IconState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.icon
}

// CreateNotification records a notification under a stable id, replacing
// any previous notification with the same id.
func (s *WebSurface) CreateNotification(id string, n Notification) error {
	s.mu.Lock()
	s.notifications[id] = n
	s.mu.Unlock()

	s.publish(Event{Kind: EventNotification, NotificationID: id, Notification: &n})
	return nil
}

// ClearNotification removes a notification. Clearing an unknown id is a
// no-op.
func (s *WebSurface) ClearNotification(id string) error {
	s.mu.Lock()
	_, existed := s.notifications[id]
	delete(s.notifications, id)
	s.mu.Unlock()

	if existed {
		s.publish(Event{Kind: EventNotificationCleared, NotificationID: id})
	}
	return nil
}

// Notifications returns a snapshot of the active notifications.
func (s *WebSurface) Notifications() map[string]Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Notification, len(s.notifications))
	for id, n := range s.notifications {
		out[id] = n
	}
	return out
}

// ListWindows returns the current window inventory.
func (s *WebSurface) ListWindows() ([]Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w)
	}
	return out, nil
}

// CreatePopup registers a popup window and asks a connected session to
// realize it.
func (s *WebSurface) CreatePopup(url string, width, height int) (Window, error) {
	w := Window{
		ID:   uuid.NewString(),
		Type: WindowTypePopup,
		URL:  url,
	}

	s.mu.Lock()
	s.windows[w.ID] = w
	s.mu.Unlock()

	s.publish(Event{
		Kind:     EventOpenPopup,
		WindowID: w.ID,
		URL:      url,
		Width:    width,
		Height:   height,
	})
	return w, nil
}

// FocusWindow asks the session owning the window to bring it forward.
func (s *WebSurface) FocusWindow(id string) error {
	s.mu.RLock()
	_, ok := s.windows[id]
	s.mu.RUnlock()

	if !ok {
		s.logger.Warn("Focus requested for unknown window", zap.String("windowId", id))
		return nil
	}

	s.publish(Event{Kind: EventFocusPopup, WindowID: id})
	return nil
}

// RegisterWindow records a window a UI session opened on its own, so
// popup-open detection counts it. An id is assigned when absent.
func (s *WebSurface) RegisterWindow(w Window) Window {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.windows[w.ID] = w
	s.mu.Unlock()

	return w
}

// CloseWindow drops a window from the inventory. UI sessions call this
// when a popup page is closed by the user.
func (s *WebSurface) CloseWindow(id string) {
	s.mu.Lock()
	delete(s.windows, id)
	s.mu.Unlock()
}

// Subscribe registers a UI session for surface events. The cancel function
// unregisters the session and closes its channel. Sessions that fall
// behind have events dropped rather than blocking the controller.
func (s *WebSurface) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan Event, 32)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

func (s *WebSurface) publish(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("Dropping surface event for slow session", zap.Int("sessionId", id))
		}
	}
}
