// Package errors re-exports github.com/cockroachdb/errors so the rest of
// markersum gets stack traces, hints and wrapping from one import.
//
//	if err := tbl.Save(path); err != nil {
//	    return errors.Mark(errors.Wrapf(err, "write %s", path), errors.ErrPersistence)
//	}
//
// Formatting an error with %+v prints the wrapped chain with stacks.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing hints and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	FlattenHints  = crdb.FlattenHints
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinels for the whole-batch failure kinds. Wrap them to add context;
// errors.Is still matches.
var (
	// ErrConfiguration means the input cannot be processed at all, e.g. the
	// text column is missing. Nothing is sent to the generation service.
	ErrConfiguration = New("configuration error")

	// ErrPersistence means the output table could not be written.
	ErrPersistence = New("persistence error")

	// ErrServiceUnavailable means the connectivity probe failed.
	ErrServiceUnavailable = New("generation service unavailable")
)

// Hints returns the user-facing hints attached anywhere in err's chain,
// joined one per line. Empty when there are none.
func Hints(err error) string {
	if err == nil {
		return ""
	}
	return FlattenHints(err)
}
