// Package belief holds the particle approximation of a belief state:
// an unweighted multiset of opaque simulation states.
package belief

import (
	"math/rand/v2"
)

// Copier is the part of a simulator a belief set needs to own particles.
type Copier[S any] interface {
	Copy(S) S
	FreeState(S)
}

// Set owns every particle added to it. Draws are copies, so sampling never
// consumes particles.
type Set[S any] struct {
	particles []S
}

func (s *Set[S]) AddSample(state S) {
	s.particles = append(s.particles, state)
}

// CreateSample returns a copy of a uniformly drawn particle.
// The set must not be empty.
func (s *Set[S]) CreateSample(c Copier[S], rng *rand.Rand) S {
	if len(s.particles) == 0 {
		panic("BUG: CreateSample on an empty belief set")
	}
	return c.Copy(s.particles[rng.IntN(len(s.particles))])
}

// Sample returns the i-th particle without copying it.
func (s *Set[S]) Sample(i int) S {
	return s.particles[i]
}

// Particles exposes the owned particles read-only.
func (s *Set[S]) Particles() []S {
	return s.particles
}

func (s *Set[S]) Len() int {
	return len(s.particles)
}

func (s *Set[S]) Empty() bool {
	return len(s.particles) == 0
}

// Copy appends a deep copy of every particle of other.
func (s *Set[S]) Copy(other *Set[S], c Copier[S]) {
	for _, p := range other.particles {
		s.particles = append(s.particles, c.Copy(p))
	}
}

// Move transfers the particles of other to s, leaving other empty.
func (s *Set[S]) Move(other *Set[S]) {
	s.particles = append(s.particles, other.particles...)
	other.particles = nil
}

// Free releases every owned particle exactly once.
func (s *Set[S]) Free(c Copier[S]) {
	for _, p := range s.particles {
		c.FreeState(p)
	}
	clear(s.particles)
	s.particles = s.particles[:0]
}
