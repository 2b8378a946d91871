package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownImage = errors.New("unknown image")
	ErrNothingToDo  = errors.New("nothing to do")
)

// LaunchError reports a command that could not be started at all, as
// opposed to one that ran and exited non-zero.
type LaunchError struct {
	Command []string
	Err     error
}

func (e *LaunchError) Error() string {
	if len(e.Command) == 0 {
		return fmt.Sprintf("launching command: %v", e.Err)
	}
	return fmt.Sprintf("launching %s: %v", e.Command[0], e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// UnknownImageError is returned when a requested image is not declared.
type UnknownImageError struct {
	Name  string
	Known []string
}

func (e *UnknownImageError) Error() string {
	return fmt.Sprintf("image %q is not declared (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownImageError) Is(target error) bool { return target == ErrUnknownImage }

// NothingToDoError is returned when every declared tag already exists.
// Image is empty for detection across all images.
type NothingToDoError struct {
	Image string
}

func (e *NothingToDoError) Error() string {
	if e.Image == "" {
		return "no new images to build"
	}
	return fmt.Sprintf("all tags of %s already exist", e.Image)
}

func (e *NothingToDoError) Is(target error) bool { return target == ErrNothingToDo }
