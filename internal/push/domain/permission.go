package domain

// PermissionState mirrors Notification.permission.
type PermissionState string

const (
	PermissionDefault PermissionState = "default"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// ParsePermission maps a platform string to a PermissionState. Anything
// unrecognised is treated as "default" so the user gets asked.
func ParsePermission(s string) PermissionState {
	switch PermissionState(s) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}
