package performs

import "errors"

var (
	// Declaration errors.
	ErrUnsupportedOption = errors.New("performs: unsupported option")
	ErrInvalidOption     = errors.New("performs: invalid option value")
	ErrEmptyMethodName   = errors.New("performs: empty method name")
	ErrSuffixConflict    = errors.New("performs: method redeclared with a different suffix")
	ErrSignatureMismatch = errors.New("performs: method redeclared with a different signature")
	ErrModelConflict     = errors.New("performs: model name bound to a different record type")
	ErrNotDeclared       = errors.New("performs: method not declared")

	// Bulk enqueue errors.
	ErrNoAllRecords    = errors.New("performs: model has no all-records source")
	ErrBulkUnsupported = errors.New("performs: host does not support bulk enqueue")
)
