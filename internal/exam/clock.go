package exam

import "time"

// Clock decides how much time a resumed session gets.
type Clock interface {
	Remaining(snap Snapshot, now time.Time) int
}

// ClientClock trusts the snapshot's remaining time as saved.
type ClientClock struct{}

func (ClientClock) Remaining(snap Snapshot, _ time.Time) int {
	return snap.TimeRemaining
}

// ServerClock subtracts the wall time elapsed since the snapshot was saved.
type ServerClock struct{}

func (ServerClock) Remaining(snap Snapshot, now time.Time) int {
	elapsed := int(now.Sub(time.UnixMilli(snap.SavedAt)) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(snap.TimeRemaining-elapsed, 0)
}

// ClockFor returns the clock named by policy ("client" or "server").
func ClockFor(policy string) Clock {
	if policy == "server" {
		return ServerClock{}
	}
	return ClientClock{}
}
