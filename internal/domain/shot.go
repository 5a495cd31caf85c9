package domain

import "fmt"

// Defaults stamped on every outbound shot.
const (
	DefaultDeviceID = "GC3 1040287"
	DefaultUnits    = "Yards"
	APIVersion      = "1"
	UnsetShotNumber = -1
)

// BallData is the ball flight measured by the launch monitor.
// Speed is in mph, angles in degrees, spin in rpm.
type BallData struct {
	Speed     float64 `json:"Speed"`
	SpinAxis  float64 `json:"SpinAxis"`
	TotalSpin float64 `json:"TotalSpin"`
	HLA       float64 `json:"HLA"`
	VLA       float64 `json:"VLA"`
}

// NewBallData requires every measurement up front so a shot never carries a
// partially populated ball.
func NewBallData(speed, spinAxis, totalSpin, hla, vla float64) *BallData {
	return &BallData{
		Speed:     speed,
		SpinAxis:  spinAxis,
		TotalSpin: totalSpin,
		HLA:       hla,
		VLA:       vla,
	}
}

// ShotOptions describes which data categories a Shot carries.
// Nil pointer fields are unset and are left out of the encoded message.
type ShotOptions struct {
	ContainsBallData          bool  `json:"ContainsBallData"`
	ContainsClubData          bool  `json:"ContainsClubData"`
	LaunchMonitorIsReady      *bool `json:"LaunchMonitorIsReady,omitempty"`
	LaunchMonitorBallDetected *bool `json:"LaunchMonitorBallDetected,omitempty"`
	IsHeartbeat               *bool `json:"IsHeartbeat,omitempty"`
}

// DefaultShotOptions returns options for a plain ball-data shot.
func DefaultShotOptions() ShotOptions {
	return ShotOptions{ContainsBallData: true}
}

// Shot is the outbound Open Connect message.
type Shot struct {
	DeviceID        string      `json:"DeviceID"`
	Units           string      `json:"Units"`
	ShotNumber      int         `json:"ShotNumber"`
	APIVersion      string      `json:"APIVersion"`
	BallData        *BallData   `json:"BallData,omitempty"`
	ShotDataOptions ShotOptions `json:"ShotDataOptions"`
}

// NewShot returns a shot with every envelope field at its default.
func NewShot() *Shot {
	return &Shot{
		DeviceID:        DefaultDeviceID,
		Units:           DefaultUnits,
		ShotNumber:      UnsetShotNumber,
		APIVersion:      APIVersion,
		ShotDataOptions: DefaultShotOptions(),
	}
}

// NewBallShot wraps measured ball data in a shot with the given sequence number.
func NewBallShot(ball *BallData, shotNumber int) *Shot {
	s := NewShot()
	s.BallData = ball
	s.ShotNumber = shotNumber
	return s
}

// NewHeartbeat returns the keep-alive variant: no ball data, flagged as a
// heartbeat and reporting the launch monitor as ready.
func NewHeartbeat() *Shot {
	s := NewShot()
	s.ShotDataOptions.ContainsBallData = false
	s.ShotDataOptions.IsHeartbeat = BoolPtr(true)
	s.ShotDataOptions.LaunchMonitorIsReady = BoolPtr(true)
	return s
}

// IsHeartbeat reports whether the shot is a keep-alive.
func (s *Shot) IsHeartbeat() bool {
	return s.ShotDataOptions.IsHeartbeat != nil && *s.ShotDataOptions.IsHeartbeat
}

func (s *Shot) String() string {
	if s.BallData == nil {
		return fmt.Sprintf("Shot(#%d heartbeat=%t)", s.ShotNumber, s.IsHeartbeat())
	}
	b := s.BallData
	return fmt.Sprintf("Shot(#%d speed=%.1f vla=%.1f hla=%.1f spin=%.0f axis=%.1f)",
		s.ShotNumber, b.Speed, b.VLA, b.HLA, b.TotalSpin, b.SpinAxis)
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
