package domain

import (
	"errors"
	"time"
)

type Episode struct {
	ID          string
	Name        string
	IsExclusive bool
	LikesNumber int
	Reviewed    bool
	VideoLink   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrNegativeLikes = errors.New("likesNumber must be >= 0")
