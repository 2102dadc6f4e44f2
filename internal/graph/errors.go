package graph

import (
	"errors"
	"fmt"
)

var (
	ErrReferential  = errors.New("referential integrity violation")
	ErrInvalidNode  = errors.New("invalid node")
	ErrInvalidEdge  = errors.New("invalid edge")
	ErrKindMismatch = errors.New("node kind mismatch")
	ErrNotFound     = errors.New("not found")
)

// ReferentialError reports an edge or interaction that names a node the
// store does not hold.
type ReferentialError struct {
	Ref       string
	MissingID string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s references missing node %q", e.Ref, e.MissingID)
}

func (e *ReferentialError) Is(target error) bool {
	return target == ErrReferential
}
