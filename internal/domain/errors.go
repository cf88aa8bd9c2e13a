package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced block, attachment or dimension row is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidationRejected marks a protective no-op such as a tripped anti-deletion guard.
	ErrValidationRejected = errors.New("validation rejected")
	// ErrStorageUnavailable wraps network and storage failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrFileIO marks a failed file operation on the file storage service.
	ErrFileIO = errors.New("file io failure")
	// ErrWriteConflict means a conditional write found the row changed since
	// it was read. Callers re-read and retry.
	ErrWriteConflict = errors.New("write conflict")
)

// ErrorKind names the error taxonomy shared by every layer.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindNotFound           ErrorKind = "not_found"
	KindValidationRejected ErrorKind = "validation_rejected"
	KindStorageUnavailable ErrorKind = "storage_unavailable"
	KindFileIO             ErrorKind = "file_io"
)

// KindOf classifies err. Unclassified errors count as storage failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidationRejected):
		return KindValidationRejected
	case errors.Is(err, ErrFileIO):
		return KindFileIO
	default:
		return KindStorageUnavailable
	}
}

// Sentinel returns the sentinel error for k.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindValidationRejected:
		return ErrValidationRejected
	case KindFileIO:
		return ErrFileIO
	case KindStorageUnavailable:
		return ErrStorageUnavailable
	}
	return nil
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationRejected, fmt.Sprintf(format, args...))
}

// Unavailable wraps a driver error as a storage failure, keeping the cause.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidationRejected) || errors.Is(err, ErrStorageUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
