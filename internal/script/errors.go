package script

import "errors"

var (
	ErrScriptNotFound      = errors.New("script file not found")
	ErrScriptAlreadyLoaded = errors.New("script already loaded")
	ErrScriptNotLoaded     = errors.New("script not loaded")
	ErrFunctionNotCallable = errors.New("function is not callable in script environment")
)
