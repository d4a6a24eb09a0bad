package types

import (
	"errors"
	"fmt"
)

// Base separates the stage from the driver code in a packed status.
// Driver result codes, extended codes included, stay well below it.
const Base = 100000

// Stage identifies the processing phase that produced an error.
type Stage int

// Stages in packed-code order. StageInvalid doubles as the clamp target
// when decoding an out-of-range status.
const (
	StageInvalid Stage = iota
	StageOpen
	StageInitialize
	StageExecute
	StagePrepare
	StageStep
	StageStatement
	StageBind
	StageMapping
	StageClose
	StageNotOpen
	StageEndOfStatement
	stageCount
)

var stageNames = [...]string{
	StageInvalid:        "invalid",
	StageOpen:           "open",
	StageInitialize:     "initialize",
	StageExecute:        "execute",
	StagePrepare:        "prepare",
	StageStep:           "step",
	StageStatement:      "statement",
	StageBind:           "bind",
	StageMapping:        "mapping",
	StageClose:          "close",
	StageNotOpen:        "not open",
	StageEndOfStatement: "end of statement",
}

// Valid reports whether s is one of the enumerated stages.
func (s Stage) Valid() bool {
	return s >= StageInvalid && s < stageCount
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Encode packs a driver code and a stage into one integer.
func Encode(code int, stage Stage) int {
	return code + int(stage)*Base
}

// DecodeCode extracts the driver code from a packed status.
func DecodeCode(status int) int {
	return status % Base
}

// DecodeStage extracts the stage from a packed status. Values outside the
// enumerated range decode to StageInvalid.
func DecodeStage(status int) Stage {
	if status < 0 {
		status = -status
	}
	s := Stage(status / Base)
	if !s.Valid() {
		return StageInvalid
	}
	return s
}

// Error is a storage failure tagged with the stage it happened in and the
// underlying driver code.
type Error struct {
	Stage Stage
	Code  int
	Err   error
}

// NewError wraps err with a stage and driver code.
func NewError(stage Stage, code int, err error) *Error {
	return &Error{Stage: stage, Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: code %d", e.Stage, e.Code)
	}
	return fmt.Sprintf("%s: code %d: %v", e.Stage, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Packed returns the integer status for e.
func (e *Error) Packed() int { return Encode(e.Code, e.Stage) }

// Is matches stage sentinels: a target with Code 0 and no cause matches any
// Error of the same stage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == 0 && t.Err == nil {
		return e.Stage == t.Stage
	}
	return e.Stage == t.Stage && e.Code == t.Code
}

// Stage sentinels for errors.Is.
var (
	// ErrEndOfStatement signals that a script has no statements left. It is
	// a loop terminator, not a failure.
	ErrEndOfStatement = &Error{Stage: StageEndOfStatement}
	ErrNotOpen        = &Error{Stage: StageNotOpen}
)

// StatusError is a validation or lookup failure reported with a small
// negative status, outside the packed taxonomy.
type StatusError struct {
	Status int
	Msg    string
}

func (e *StatusError) Error() string { return e.Msg }

// Connection validation errors, detected before any driver call.
var (
	ErrPathNotAbsolute = &StatusError{Status: -1, Msg: "database path is not absolute"}
	ErrPathNoFilename  = &StatusError{Status: -2, Msg: "database path has no file name"}
	ErrNotRegularFile  = &StatusError{Status: -3, Msg: "database path is not a regular file"}
)

// Lookup errors returned by the query helpers.
var (
	ErrNotFound        = &StatusError{Status: -1, Msg: "not found"}
	ErrInvalidPageSize = &StatusError{Status: -2, Msg: "page size must be positive"}
)

// Status converts err into the integer status callers outside Go see:
// 0 for nil, the packed code for *Error, the sentinel value for
// *StatusError. Anything else is reported as a generic execute failure.
func Status(err error) int {
	if err == nil {
		return 0
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Packed()
	}
	var ve *StatusError
	if errors.As(err, &ve) {
		return ve.Status
	}
	return Encode(1, StageExecute)
}
