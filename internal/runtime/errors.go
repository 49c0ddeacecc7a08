package runtime

import "errors"

var (
	ErrRuntimeClosed      = errors.New("runtime is closed")
	ErrScriptNotFound     = errors.New("script not found in load path")
	ErrUnknownInitializer = errors.New("unknown runtime initializer")
)
