package exam

import "errors"

// Validation errors leave the session unchanged and can be retried.
var (
	ErrNoQuestions      = errors.New("class has no questions")
	ErrExamExpired      = errors.New("exam has expired")
	ErrIdentityRequired = errors.New("name and email are required")
	ErrInvalidAccessKey = errors.New("invalid access key")
	ErrAlreadyStarted   = errors.New("session already started")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrSessionSubmitted = errors.New("session already submitted")
	ErrTimeUp           = errors.New("exam time is up")
	ErrUnknownQuestion  = errors.New("question is not part of this exam")
	ErrUnknownOption    = errors.New("option is not offered for this question")
	ErrNoSnapshot       = errors.New("no snapshot to resume from")
)

// Data-access errors wrap the store error; the transition they guard did not
// happen.
var (
	ErrRosterWrite = errors.New("could not register student")
	ErrResultWrite = errors.New("could not record result")
)
