package sprig

import "errors"

// Tree construction errors.
var (
	ErrNilNode            = errors.New("sprig: nil node")
	ErrDuplicateName      = errors.New("sprig: duplicate child name")
	ErrCycle              = errors.New("sprig: adding child would create a cycle")
	ErrChildNotFound      = errors.New("sprig: child not found")
	ErrChildType          = errors.New("sprig: child has unexpected type")
	ErrDestroyed          = errors.New("sprig: node is destroyed")
	ErrAlreadyInitialized = errors.New("sprig: node already initialized")
	ErrKindNotLoaded      = errors.New("sprig: kind not loaded")
)

// Replication errors.
var (
	ErrUnknownEntity   = errors.New("sprig: unknown entity")
	ErrDuplicateEntity = errors.New("sprig: entity already live")
)
