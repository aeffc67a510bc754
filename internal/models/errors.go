package models

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConnectivity: транспорт/API. Ретраится только в шлюзе исполнения.
	KindConnectivity
	// KindValidation: отказ риск-гейта, не ретраится.
	KindValidation
	// KindInsufficientData: мало истории, локально превращается в Hold.
	KindInsufficientData
	// KindFatalExecution: исчерпан бюджет попыток, позиция не считается открытой.
	KindFatalExecution
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindValidation:
		return "validation"
	case KindInsufficientData:
		return "insufficient_data"
	case KindFatalExecution:
		return "fatal_execution"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind ErrorKind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// KindOf достаёт вид ошибки через всю цепочку обёрток.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
