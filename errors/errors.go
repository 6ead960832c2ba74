package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrSelfReference    = fmt.Errorf("you can't add yourself")
	ErrUnknownUser      = fmt.Errorf("this user does not exist")
	ErrDuplicateMember  = fmt.Errorf("user is already a member")
	ErrUsernameTaken    = fmt.Errorf("username is already taken")
	ErrEmptyInput       = fmt.Errorf("input is empty")
	ErrInvalidInput     = fmt.Errorf("input is invalid")
	ErrNoIdentity       = fmt.Errorf("no established identity")
	ErrStoreUnavailable = fmt.Errorf("directory store unavailable")
	ErrUnknownChat      = fmt.Errorf("chat does not exist")
)
