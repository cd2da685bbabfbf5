package localstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInitialization means the storage engine could not be opened. All
	// store operations fail until a later Open succeeds.
	ErrInitialization = errors.New("localstore: storage engine could not be opened")

	// ErrNotInitialized is returned by operations invoked before Open.
	ErrNotInitialized = errors.New("localstore: store not initialized")

	// ErrNotFound is returned when a referenced identity does not exist for
	// an operation that requires an existing record.
	ErrNotFound = errors.New("localstore: record not found")

	// ErrStorage covers underlying read/write failures other than "not found".
	ErrStorage = errors.New("localstore: storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
