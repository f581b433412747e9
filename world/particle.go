package world

import "image/color"

// Particle is a purely client side effect advanced by the local simulation.
type Particle struct {
	Position Point
	Velocity Point
	// Drag is the fraction of velocity lost per tick.
	Drag     float64
	Size     float64
	Color    color.RGBA
	Age      int
	Lifetime int

	chunk *Chunk
}

func (p *Particle) Expired() bool { return p.Age >= p.Lifetime }

// Opacity fades linearly over the particle's lifetime.
func (p *Particle) Opacity() float64 {
	if p.Lifetime <= 0 {
		return 0
	}
	o := 1 - float64(p.Age)/float64(p.Lifetime)
	if o < 0 {
		return 0
	}
	return o
}

// RenderPosition interpolates the particle for the current frame.
func (p *Particle) RenderPosition(frameProgress, tps float64) Point {
	v := p.Velocity
	return Interpolate(p.Position, &v, frameProgress, tps)
}

func (p *Particle) tick(tps float64) {
	p.Position = p.Position.Add(p.Velocity.Scale(1 / tps))
	p.Velocity = p.Velocity.Scale(1 - p.Drag)
	p.Age++
}
