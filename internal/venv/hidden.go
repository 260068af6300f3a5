package venv

import "errors"

var errHiddenUnsupported = errors.New("hidden attribute is not supported on this platform")
