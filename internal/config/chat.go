package config

import "time"

const (
	// Text limits
	MaxNoteLength     = 140
	MaxTopicLength    = 80
	MaxUserNameLength = 30
	MaxRoomNameLength = 30
	MinPasswordLength = 6

	InviteCodeLength = 6

	// Presence
	DefaultNudgeInterval = 60 * time.Second
	IdleSweepInterval    = time.Minute

	// Previews are appended to a message at most this many times.
	MaxLinksPerMessage = 5
)
