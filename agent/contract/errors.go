package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrValidation         = errors.New("validation failed")
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrArgumentParse      = errors.New("capability arguments could not be parsed")
	ErrManifest           = errors.New("capability manifest is invalid")
	ErrStorage            = errors.New("storage operation failed")
	ErrNotFound           = errors.New("storage key not found")
)
