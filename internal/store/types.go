package store

import (
	"errors"
	"time"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

type Stats struct {
	Nodes        int
	Edges        int
	Interactions int
	SavedAt      time.Time
}

func (s Stats) Empty() bool {
	return s.Nodes == 0 && s.Edges == 0 && s.Interactions == 0
}
