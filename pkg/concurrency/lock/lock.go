package lock

// LockType is the mode a transaction holds a page in.
type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

func (lt LockType) String() string {
	switch lt {
	case SharedLock:
		return "SHARED"
	case ExclusiveLock:
		return "EXCLUSIVE"
	default:
		return "UNKNOWN"
	}
}

// covers reports whether holding lt satisfies a request for want.
func (lt LockType) covers(want LockType) bool {
	return lt == ExclusiveLock || want == SharedLock
}
