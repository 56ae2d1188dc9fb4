package domain

import "errors"

// ErrFlowNotFound is returned when a flow definition cannot be found for a tenant.
var ErrFlowNotFound = errors.New("flow not found")

// ErrNodeNotFound is returned when a node id does not exist in a flow.
var ErrNodeNotFound = errors.New("node not found")

// ErrInvalidFlow wraps structural problems detected by Validate.
var ErrInvalidFlow = errors.New("invalid flow")
