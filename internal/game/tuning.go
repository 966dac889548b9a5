package game

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Tuning holds every gameplay constant. Both peers must run with the same
// values for their views to agree.
type Tuning struct {
	Arena          float64       `yaml:"arena"`          // side length of the square arena
	MaxSpeed       float64       `yaml:"maxSpeed"`       // speed is clamped to [0, MaxSpeed]
	Accel          float64       `yaml:"accel"`          // units/s² while forward or back is held
	TurnRate       float64       `yaml:"turnRate"`       // rad/s while left or right is held
	TrailMax       int           `yaml:"trailMax"`       // points kept per trail, oldest evicted first
	HitThresholdSq float64       `yaml:"hitThresholdSq"` // squared distance that counts as a crash
	SelfSkip       int           `yaml:"selfSkip"`       // most recent own-trail points ignored by collision
	StartSpeed     float64       `yaml:"startSpeed"`
	UpdateInterval time.Duration `yaml:"updateInterval"` // minimum spacing between position snapshots
	ReturnDelay    time.Duration `yaml:"returnDelay"`    // pause on the game-over message
}

// DefaultTuning returns the standard arena.
func DefaultTuning() Tuning {
	return Tuning{
		Arena:          600,
		MaxSpeed:       50,
		Accel:          20,
		TurnRate:       math.Pi,
		TrailMax:       1400,
		HitThresholdSq: 9,
		SelfSkip:       20,
		StartSpeed:     50 * 0.2,
		UpdateInterval: 50 * time.Millisecond,
		ReturnDelay:    3 * time.Second,
	}
}

// HalfArena is the coordinate bound on both axes.
func (t Tuning) HalfArena() float64 { return t.Arena / 2 }

// Validate reports the first out-of-range value.
func (t Tuning) Validate() error {
	switch {
	case t.Arena <= 0:
		return fmt.Errorf("arena must be positive, got %v", t.Arena)
	case t.MaxSpeed <= 0:
		return fmt.Errorf("maxSpeed must be positive, got %v", t.MaxSpeed)
	case t.Accel < 0:
		return fmt.Errorf("accel must not be negative, got %v", t.Accel)
	case t.TurnRate < 0:
		return fmt.Errorf("turnRate must not be negative, got %v", t.TurnRate)
	case t.TrailMax < 2:
		return fmt.Errorf("trailMax must be at least 2, got %d", t.TrailMax)
	case t.HitThresholdSq <= 0:
		return fmt.Errorf("hitThresholdSq must be positive, got %v", t.HitThresholdSq)
	case t.SelfSkip < 0:
		return fmt.Errorf("selfSkip must not be negative, got %d", t.SelfSkip)
	case t.StartSpeed < 0 || t.StartSpeed > t.MaxSpeed:
		return fmt.Errorf("startSpeed must be within [0, %v], got %v", t.MaxSpeed, t.StartSpeed)
	case t.UpdateInterval <= 0:
		return errors.New("updateInterval must be positive")
	case t.ReturnDelay < 0:
		return errors.New("returnDelay must not be negative")
	}
	return nil
}

// CheckFrameInterval reports whether frames of period d space a coasting
// bike's trail points far enough apart. The SelfSkip most recent points must
// span more than the hit radius at StartSpeed, or a bike going straight
// crashes into the trail it is drawing.
func (t Tuning) CheckFrameInterval(d time.Duration) error {
	if t.StartSpeed == 0 {
		return nil
	}
	radius := math.Sqrt(t.HitThresholdSq)
	if t.StartSpeed*d.Seconds()*float64(t.SelfSkip) > radius {
		return nil
	}
	if t.SelfSkip == 0 {
		return errors.New("selfSkip 0 makes a moving bike hit its own trail")
	}
	need := time.Duration(radius / (t.StartSpeed * float64(t.SelfSkip)) * float64(time.Second))
	return fmt.Errorf("frame interval %v is too short: a bike at startSpeed %v needs more than %v per frame to clear its own trail", d, t.StartSpeed, need)
}
