//go:build unix

package gposix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joomcode/errorx"
	"golang.org/x/sys/unix"
)

// Category is the coarse classification of a failure.
type Category int

const (
	// CategoryNone is reported for nil and for errors not produced by gposix
	CategoryNone Category = iota

	// CategoryLogic indicates a programmer-correctable misuse
	CategoryLogic

	// CategoryRuntime indicates an environment-dependent, situational failure
	CategoryRuntime

	// CategoryFatal indicates resource exhaustion
	CategoryFatal
)

func (c Category) String() string {
	switch c {
	case CategoryLogic:
		return "logic"
	case CategoryRuntime:
		return "runtime"
	case CategoryFatal:
		return "fatal"
	default:
		return "none"
	}
}

var (
	ErrNamespace = errorx.NewNamespace("gposix")

	LogicTrait   = errorx.RegisterTrait("logic")
	RuntimeTrait = errorx.RegisterTrait("runtime")
	FatalTrait   = errorx.RegisterTrait("fatal")

	LogicError   = ErrNamespace.NewType("logic_error", LogicTrait)
	RuntimeError = ErrNamespace.NewType("runtime_error", RuntimeTrait)
	FatalError   = ErrNamespace.NewType("fatal_error", FatalTrait)

	BadDescriptor     = LogicError.NewSubtype("bad_descriptor")
	BadAddress        = LogicError.NewSubtype("bad_address")
	InvalidArgument   = LogicError.NewSubtype("invalid_argument")
	NameTooLong       = LogicError.NewSubtype("name_too_long")
	NotADirectory     = LogicError.NewSubtype("not_a_directory")
	MessageTooLong    = LogicError.NewSubtype("message_too_long")
	NotImplemented    = LogicError.NewSubtype("not_implemented")
	ProtocolViolation = LogicError.NewSubtype("protocol_violation")

	OutOfMemory      = FatalError.NewSubtype("out_of_memory")
	TooManyOpenFiles = FatalError.NewSubtype("too_many_open_files")
	NoSpace          = FatalError.NewSubtype("no_space")
	NoBufferSpace    = FatalError.NewSubtype("no_buffer_space")

	ConnectionRefused = RuntimeError.NewSubtype("connection_refused")
	PermissionDenied  = RuntimeError.NewSubtype("permission_denied")
	SymlinkLoop       = RuntimeError.NewSubtype("symlink_loop")
	NotConnected      = RuntimeError.NewSubtype("not_connected")
	NotFound          = RuntimeError.NewSubtype("not_found", errorx.NotFound())

	ErrnoProperty = errorx.RegisterProperty("errno")
	OpProperty    = errorx.RegisterProperty("op")
	ArgsProperty  = errorx.RegisterPrintableProperty("args")
)

// errnoTypes is the fixed errno to error type table. Codes that are not
// listed fall through to RuntimeError.
var errnoTypes = map[unix.Errno]*errorx.Type{
	unix.EBADF:        BadDescriptor,
	unix.EFAULT:       BadAddress,
	unix.EINVAL:       InvalidArgument,
	unix.ENAMETOOLONG: NameTooLong,
	unix.ENOTDIR:      NotADirectory,
	unix.EMSGSIZE:     MessageTooLong,
	unix.ENOSYS:       NotImplemented,

	unix.ENOMEM:  OutOfMemory,
	unix.EMFILE:  TooManyOpenFiles,
	unix.ENFILE:  TooManyOpenFiles,
	unix.ENOSPC:  NoSpace,
	unix.ENOBUFS: NoBufferSpace,

	unix.ECONNREFUSED: ConnectionRefused,
	unix.EACCES:       PermissionDenied,
	unix.EPERM:        PermissionDenied,
	unix.ELOOP:        SymlinkLoop,
	unix.ENOTCONN:     NotConnected,
	unix.ENOENT:       NotFound,
}

// Classify returns the error type for an OS error code. It never returns nil.
func Classify(code unix.Errno) *errorx.Type {
	if t, ok := errnoTypes[code]; ok {
		return t
	}
	return RuntimeError
}

// Arg is one key/value pair describing a failed call.
type Arg struct {
	Key   string
	Value any
}

// Args is the ordered argument list attached to an error. It is rendered
// only when the error is printed.
type Args []Arg

func (a Args) String() string {
	var sb strings.Builder
	for i, arg := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", arg.Key, arg.Value)
	}
	return sb.String()
}

func pairs(kv []any) Args {
	args := make(Args, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		var value any
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		args = append(args, Arg{Key: key, Value: value})
	}
	return args
}

// NewError builds the taxonomy value for a failed call. kv is a list of
// alternating argument names and values.
func NewError(code unix.Errno, op string, kv ...any) *errorx.Error {
	e := Classify(code).Wrap(code, "%s", op).
		WithProperty(ErrnoProperty, code).
		WithProperty(OpProperty, op)
	if len(kv) > 0 {
		e = e.WithProperty(ArgsProperty, pairs(kv))
	}
	return e
}

// wrapErrno converts an error returned by x/sys/unix into the taxonomy.
// Errors that do not carry an errno are reported as RuntimeError.
func wrapErrno(err error, op string, kv ...any) error {
	if err == nil {
		return nil
	}
	if e := errorx.Cast(err); e != nil {
		return e
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return NewError(errno, op, kv...)
	}
	e := RuntimeError.Wrap(err, "%s", op).WithProperty(OpProperty, op)
	if len(kv) > 0 {
		e = e.WithProperty(ArgsProperty, pairs(kv))
	}
	return e
}

// badDescriptor is returned by operations invoked on an invalid Descriptor.
func badDescriptor(op string, fd int) error {
	return NewError(unix.EBADF, op, "fd", fd)
}

// ErrnoOf returns the OS error code carried by err.
func ErrnoOf(err error) (unix.Errno, bool) {
	v, ok := errorx.ExtractProperty(err, ErrnoProperty)
	if !ok {
		return 0, false
	}
	code, ok := v.(unix.Errno)
	return code, ok
}

// OpOf returns the name of the operation that produced err.
func OpOf(err error) (string, bool) {
	v, ok := errorx.ExtractProperty(err, OpProperty)
	if !ok {
		return "", false
	}
	op, ok := v.(string)
	return op, ok
}

// ArgsOf returns the arguments recorded for the failed operation.
func ArgsOf(err error) Args {
	v, ok := errorx.ExtractProperty(err, ArgsProperty)
	if !ok {
		return nil
	}
	args, _ := v.(Args)
	return args
}

// CategoryOf returns the category of err.
func CategoryOf(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errorx.HasTrait(err, FatalTrait):
		return CategoryFatal
	case errorx.HasTrait(err, LogicTrait):
		return CategoryLogic
	case errorx.HasTrait(err, RuntimeTrait):
		return CategoryRuntime
	}
	return CategoryNone
}

// IsLogic returns true if err is a programmer-correctable misuse
func IsLogic(err error) bool {
	return CategoryOf(err) == CategoryLogic
}

// IsRuntime returns true if err is an environment-dependent failure
func IsRuntime(err error) bool {
	return CategoryOf(err) == CategoryRuntime
}

// IsFatal returns true if err indicates resource exhaustion
func IsFatal(err error) bool {
	return CategoryOf(err) == CategoryFatal
}
