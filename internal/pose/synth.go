package pose

import "math"

// Segment lengths used by SwingFrame, in normalized image units.
const (
	synthTorso = 0.25
	synthThigh = 0.20
	synthShin  = 0.20
)

// SwingFrame builds a full-body frame whose hip and knee angles on the given side
// match hipDeg and kneeDeg. The thigh hangs straight down from a hip at (0.5, 0.45),
// the torso is rotated hipDeg away from the thigh and the shin kneeDeg away from it.
// Every landmark gets a visibility of 0.99. Useful for tests and replay demos.
func SwingFrame(side Side, hipDeg, kneeDeg float64) Frame {
	f := Frame{Landmarks: make([]Landmark, NumLandmarks)}
	for i := range f.Landmarks {
		f.Landmarks[i] = Landmark{X: 0.5, Y: 0.5, Visibility: 0.99}
	}

	hip := Landmark{X: 0.5, Y: 0.45, Visibility: 0.99}
	knee := Landmark{X: hip.X, Y: hip.Y + synthThigh, Visibility: 0.99}

	// Image Y grows downwards; hip->knee is (0, 1). Rotating it by theta gives (-sin, cos).
	theta := hipDeg * math.Pi / 180
	shoulder := Landmark{
		X:          hip.X - synthTorso*math.Sin(theta),
		Y:          hip.Y + synthTorso*math.Cos(theta),
		Visibility: 0.99,
	}

	// knee->hip is (0, -1); rotated by phi it becomes (sin, -cos).
	phi := kneeDeg * math.Pi / 180
	ankle := Landmark{
		X:          knee.X + synthShin*math.Sin(phi),
		Y:          knee.Y - synthShin*math.Cos(phi),
		Visibility: 0.99,
	}

	sides := []Side{side}
	if side == SideAuto {
		sides = []Side{SideLeft, SideRight}
	}
	for _, s := range sides {
		idx := s.indices()
		f.Landmarks[idx[Shoulder]] = shoulder
		f.Landmarks[idx[Hip]] = hip
		f.Landmarks[idx[Knee]] = knee
		f.Landmarks[idx[Ankle]] = ankle
	}

	return f
}

// SwingSequence builds one frame per (hip, knee) pair with increasing Seq numbers.
func SwingSequence(side Side, angles [][2]float64) []Frame {
	frames := make([]Frame, len(angles))
	for i, a := range angles {
		frames[i] = SwingFrame(side, a[0], a[1])
		frames[i].Seq = uint64(i + 1)
		frames[i].Timestamp = int64(i) * 33
	}
	return frames
}
