// Package session derives conversation session identifiers.
package session

import (
	"fmt"
	"time"
)

// ID returns the session identifier for a user at a given time.  Sessions
// roll over on the hour: all activity within the same clock hour shares one
// identifier, so analytics can group events into hourly conversations.
func ID(userID int64, now time.Time) string {
	return fmt.Sprintf("%d_%s", userID, now.Format("2006010215"))
}
