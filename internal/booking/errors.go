package booking

import "errors"

// Validation errors are returned to callers as typed rejections and mapped to
// 4xx responses at the transport edge; they never escape as 500s.
var (
	ErrUnknownProfessor   = errors.New("unknown professor")
	ErrNoOfficeHours      = errors.New("no office hours on that day")
	ErrOutsideOfficeHours = errors.New("requested time is outside office hours")
	ErrSlotAlreadyBooked  = errors.New("slot already booked")
	ErrBookingNotFound    = errors.New("booking not found")
)

// ErrStorageUnavailable marks a storage failure that is fatal for the current
// call; callers retry the whole request rather than resuming mid-operation.
var ErrStorageUnavailable = errors.New("storage unavailable")
