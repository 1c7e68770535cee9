package model

import "fmt"

// Code is the §7 error taxonomy. Every public pipeline call returns either
// success with a (possibly empty) result, or a typed error; the two are
// never mixed.
type Code int

const (
	CodeInvalidArgument Code = iota
	CodeResourceExhausted
	CodeHotspotCapacityReached
	CodeNoData
	CodeInconsistentCacheModel
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeResourceExhausted:
		return "ResourceExhausted"
	case CodeHotspotCapacityReached:
		return "HotspotCapacityReached"
	case CodeNoData:
		return "NoData"
	case CodeInconsistentCacheModel:
		return "InconsistentCacheModel"
	default:
		return "Unknown"
	}
}

// Error is a typed, one-line error carrying a §7 Code. No stack traces
// cross the core boundary.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func ResourceExhausted(format string, args ...interface{}) *Error {
	return &Error{Code: CodeResourceExhausted, Message: fmt.Sprintf(format, args...)}
}

func HotspotCapacityReached(format string, args ...interface{}) *Error {
	return &Error{Code: CodeHotspotCapacityReached, Message: fmt.Sprintf(format, args...)}
}

func InconsistentCacheModel(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInconsistentCacheModel, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
