package control

import "github.com/san-kum/swervesim/internal/dynamo"

type Idle struct{}

func NewIdle() Idle {
	return Idle{}
}

func (Idle) Next(float64) dynamo.Command {
	return dynamo.Command{}
}
