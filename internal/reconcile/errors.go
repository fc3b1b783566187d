package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInventory indicates the run was started without a ledger.
	ErrNoInventory = errors.New("no inventory ledger provided")
	// ErrNoSalesData indicates that no sales table could be used.
	ErrNoSalesData = errors.New("no usable sales data")
	// ErrMalformedFile is wrapped by MalformedFileError.
	ErrMalformedFile = errors.New("uploaded file could not be parsed")
)

// MalformedFileError names the upload that failed to parse.
type MalformedFileError struct {
	File string
	Err  error
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrMalformedFile.Error(), e.File, e.Err)
}

func (e *MalformedFileError) Unwrap() []error { return []error{ErrMalformedFile, e.Err} }
