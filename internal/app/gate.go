package app

import "context"

// Gate limite le nombre d'écritures concurrentes (sémaphore).
// Avec une limite de 1, il sérialise les read-modify-write d'un service.
// Acquire respecte le contexte.
type Gate struct {
	slots chan struct{}
}

func NewGate(limit int) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{slots: make(chan struct{}, limit)}
}

func (g *Gate) Limit() int { return cap(g.slots) }

func (g *Gate) InFlight() int { return len(g.slots) }

func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}
