package studyhall

import "errors"

// User-facing rejection reasons. Handlers match on these with errors.Is
// and report them through the messaging gateway; none of them leaves
// partial state behind.
var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrSessionAlreadyActive = errors.New("session already active")
	ErrNoActiveSession      = errors.New("no active session")
	ErrDuplicateGroup       = errors.New("study group already exists")
	ErrNoSuchGroup          = errors.New("no study group exists")
	ErrGroupFull            = errors.New("study group is full")
	ErrAlreadyInGroup       = errors.New("already in a study group")
	ErrNotInGroup           = errors.New("not in a study group")
	ErrChannelAlreadyExists = errors.New("voice channel already exists")
	ErrNoChannel            = errors.New("no voice channel exists")
	ErrInvalidDuration      = errors.New("invalid duration")
)
