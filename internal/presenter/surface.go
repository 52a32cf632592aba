// Package presenter defines the presentation surfaces the lifecycle
// controller drives: the status icon, user notifications, and the popup
// window. Surfaces are fire-and-forget collaborators; failures are logged
// by the caller and never abort a poll cycle.
package presenter

import (
	"fmt"

	"go.uber.org/zap"
)

// IconState is the status icon variant. Exactly one state is active at any
// time and transitions are driven solely by the lifecycle controller.
type IconState int

const (
	// IconNormal is the idle icon shown when no warning is active.
	IconNormal IconState = iota

	// IconWarning is shown while a warning set is active.
	IconWarning

	// IconError is shown after a failed poll cycle.
	IconError
)

// String returns the state name used in logs and API payloads.
func (s IconState) String() string {
	switch s {
	case IconNormal:
		return "normal"
	case IconWarning:
		return "warning"
	case IconError:
		return "error"
	default:
		return fmt.Sprintf("IconState(%d)", int(s))
	}
}

// iconSizes are the pixel variants shipped per icon state.
var iconSizes = []string{"16", "32", "48", "128"}

// AssetPaths returns the icon asset path for every shipped pixel size. The
// mapping is exhaustive over the three states.
func (s IconState) AssetPaths() map[string]string {
	var stem string
	switch s {
	case IconWarning:
		stem = "icons/icon-warning"
	case IconError:
		stem = "icons/icon-error"
	default:
		stem = "icons/icon"
	}

	paths := make(map[string]string, len(iconSizes))
	for _, size := range iconSizes {
		paths[size] = stem + size + ".png"
	}
	return paths
}

// Notification is one user-visible notification payload.
type Notification struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	IconPath string `json:"iconPath"`

	// RTL is set for right-to-left languages so the surface can lay the
	// text out correctly.
	RTL bool `json:"rtl"`
}

// IconSurface sets the active status icon.
type IconSurface interface {
	SetIcon(state IconState) error
}

// Notifier creates and clears notifications by stable id.
type Notifier interface {
	CreateNotification(id string, n Notification) error
	ClearNotification(id string) error
}

// Window describes one known window on the host surface.
type Window struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// WindowTypePopup is the window type popup-open detection checks for.
const WindowTypePopup = "popup"

// Popup window target dimensions.
const (
	PopupWidth  = 400
	PopupHeight = 600
)

// WindowManager lists, creates, and focuses windows.
type WindowManager interface {
	ListWindows() ([]Window, error)
	CreatePopup(url string, width, height int) (Window, error)
	FocusWindow(id string) error
}

// Surface is the full presentation surface consumed by the controller.
type Surface interface {
	IconSurface
	Notifier
	WindowManager
}

// EnsurePopup makes sure exactly one popup window showing popupURL is
// visible: if one exists it is focused, otherwise a new one is created.
// Detection is an exact URL match on popup-type windows.
func EnsurePopup(wm WindowManager, popupURL string, logger *zap.Logger) error {
	windows, err := wm.ListWindows()
	if err != nil {
		return err
	}

	for _, w := range windows {
		if w.Type == WindowTypePopup && w.URL == popupURL {
			logger.Debug("Popup already open, focusing", zap.String("windowId", w.ID))
			return wm.FocusWindow(w.ID)
		}
	}

	created, err := wm.CreatePopup(popupURL, PopupWidth, PopupHeight)
	if err != nil {
		return err
	}

	logger.Debug("Popup window opened", zap.String("windowId", created.ID))
	return nil
}
