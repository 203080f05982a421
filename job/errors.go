package job

import "errors"

var (
	ErrNoStore       = errors.New("job: no store configured")
	ErrNotFound      = errors.New("job: not found")
	ErrAlreadyExists = errors.New("job: already exists")
	ErrNoHandler     = errors.New("job: no handler registered")
)
