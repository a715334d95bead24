package auth

import "strconv"

// Identity is who a request acts for: a signed-in user, or else the
// anonymous device that sent it.
type Identity struct {
	UserID   uint64
	DeviceID string
}

func (i Identity) Authenticated() bool { return i.UserID != 0 }

// Owner is a stable string key for ownership checks.
func (i Identity) Owner() string {
	if i.Authenticated() {
		return "user:" + strconv.FormatUint(i.UserID, 10)
	}
	return "device:" + i.DeviceID
}
