// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// ExitCode is a process exit status with a documented meaning. Client
// supervisors distinguish these to decide whether to restart the host.
type ExitCode int

const (
	// ExitTerminated answers the hard-termination directory sentinel.
	ExitTerminated ExitCode = 0

	// ExitUsage reports a usage or configuration error from run().
	ExitUsage ExitCode = 1

	// ExitFatal reports an unrecoverable error in the host loop,
	// including a failure to initialize the texture device.
	ExitFatal ExitCode = 10

	// ExitNamedObject reports a failure to open a required named
	// object, such as the directory segment.
	ExitNamedObject ExitCode = 11

	// ExitTextureImport reports a shared texture handle that could
	// not be imported.
	ExitTextureImport ExitCode = 20

	// ExitCrashLoop reports that an engine kept crashing within the
	// crash window.
	ExitCrashLoop ExitCode = 29

	// ExitPanic reports a panic that escaped the frame loop.
	ExitPanic ExitCode = 57
)

func (c ExitCode) String() string {
	switch c {
	case ExitTerminated:
		return "terminated"
	case ExitUsage:
		return "usage"
	case ExitFatal:
		return "fatal"
	case ExitNamedObject:
		return "named-object"
	case ExitTextureImport:
		return "texture-import"
	case ExitCrashLoop:
		return "crash-loop"
	case ExitPanic:
		return "panic"
	default:
		return fmt.Sprintf("exit(%d)", int(c))
	}
}

// Exiter ends the process. Components that may have to terminate the
// host take an Exiter so tests can observe the code instead of dying.
type Exiter func(code ExitCode)

// Exit is the production Exiter.
func Exit(code ExitCode) {
	os.Exit(int(code))
}

// Fatal writes "error: err" to stderr and exits with ExitUsage. Use it
// in main() for errors from run() where the structured logger may not
// be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(int(ExitUsage))
}

// Error is an error that carries the exit code main should use.
type Error struct {
	Code ExitCode
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// WithCode wraps err so that Fail exits with code.
func WithCode(code ExitCode, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// CodeOf returns the exit code carried by err, or ExitUsage.
func CodeOf(err error) ExitCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ExitUsage
}

// Fail writes "error: err" to stderr and exits with the code err
// carries (ExitUsage when it carries none).
func Fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(int(CodeOf(err)))
}
