// Package game holds the flappy bird world: the bird, the pipes, the scrolling
// ground and the pixel masks used for collision tests.
//
// Units are window pixels and ticks. The y axis points down.
package game

// World geometry.
const (
	WindowWidth  = 600
	WindowHeight = 800
	Floor        = 730 // top edge of the ground strip

	BirdStartX = 230
	BirdStartY = 350

	FirstPipeX = 700 // x of the pipe that opens an episode
	SpawnX     = 600 // x of every pipe added after a pass
)

// Bird motion.
const (
	JumpVelocity     = -10.5
	Gravity          = 3.0
	TerminalVelocity = 16.0
	FallBias         = 2.0 // extra drop per tick once falling

	MaxRotation      = 25.0
	RotationVelocity = 20.0
	MinTilt          = -90.0
)

// Sprite sizes.
const (
	BirdWidth  = 68
	BirdHeight = 48

	PipeWidth  = 104
	PipeHeight = 640
	PipeLip    = 52 // rows of the full-width lip at the open end
	PipeInset  = 6  // body inset on each side below the lip

	BaseWidth = 672
)

// Pipes and ground.
const (
	PipeGap       = 200
	PipeVelocity  = 9
	MinPipeHeight = 50
	MaxPipeHeight = 450

	BaseVelocity = 10
)
