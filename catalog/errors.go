package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFormat = errors.New("unknown format")
	ErrUnknownTitle  = errors.New("unknown title")
)

type UnknownFormatError struct {
	Tag string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format %q", e.Tag)
}

func (e *UnknownFormatError) Unwrap() error {
	return ErrUnknownFormat
}
