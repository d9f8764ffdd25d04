package miningmgr

// NotificationType represents the type of a notification message.
type NotificationType int

// Constants for the type of a notification message.
const (
	// NTWorkComplete indicates a validated block was mined. The data is
	// a *model.WorkComplete.
	NTWorkComplete NotificationType = iota
	// NTSessionStarted indicates a new mining session began. The data
	// is the session ID.
	NTSessionStarted
	// NTSessionStopped indicates the current session was stopped
	// without a block. The data is the session ID.
	NTSessionStopped
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTWorkComplete:   "NTWorkComplete",
	NTSessionStarted: "NTSessionStarted",
	NTSessionStopped: "NTSessionStopped",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return "Unknown Notification Type"
}

// NotificationCallback is used for a caller to provide a callback for
// notifications about mining events.
type NotificationCallback func(*Notification)

// Notification defines notification that is sent to the caller via the
// callback function provided during the call to Subscribe and consists of a
// notification type as well as associated data.
type Notification struct {
	Type NotificationType
	Data interface{}
}
