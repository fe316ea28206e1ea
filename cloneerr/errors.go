// Package cloneerr holds the failure taxonomy shared by the export and import
// pipelines. Every failure surfaced to the CLI carries one Kind.
package cloneerr

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind discriminates failures.
type Kind string

const (
	MalformedDefinition  Kind = "MalformedDefinition"
	ResourceNotFound     Kind = "ResourceNotFound"
	DownloadFailed       Kind = "DownloadFailed"
	WriteFailed          Kind = "WriteFailed"
	ReadFailed           Kind = "ReadFailed"
	MissingEnvEntry      Kind = "MissingEnvEntry"
	MalformedEnvironment Kind = "MalformedEnvironment"
	CreateFailed         Kind = "CreateFailed"
	PublishFailed        Kind = "PublishFailed"
	InvalidConfig        Kind = "InvalidConfig"
)

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrMalformedDefinition  = &Error{Kind: MalformedDefinition}
	ErrResourceNotFound     = &Error{Kind: ResourceNotFound}
	ErrDownloadFailed       = &Error{Kind: DownloadFailed}
	ErrWriteFailed          = &Error{Kind: WriteFailed}
	ErrReadFailed           = &Error{Kind: ReadFailed}
	ErrMissingEnvEntry      = &Error{Kind: MissingEnvEntry}
	ErrMalformedEnvironment = &Error{Kind: MalformedEnvironment}
	ErrCreateFailed         = &Error{Kind: CreateFailed}
	ErrPublishFailed        = &Error{Kind: PublishFailed}
	ErrInvalidConfig        = &Error{Kind: InvalidConfig}
)

type Error struct {
	Kind Kind
	// Msg describes the failed operation, e.g. "create function dev-order".
	Msg string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// APICode returns the AWS error code carried by err, if any.
func APICode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
