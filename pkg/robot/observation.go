package robot

import "encoding/json"

// Observation is the calibrated leader state as consumed by a recorder.
type Observation struct {
	Joints [NumArmJoints]float64
	// Gripper is the normalized gripper position, nil when the gripper is disabled.
	Gripper *float64
}

// Map returns the observation keyed by feature name. The gripper entry is
// always present and holds nil when the gripper is disabled.
func (o Observation) Map() map[string]any {
	m := make(map[string]any, NumArmJoints+1)
	for i, v := range o.Joints {
		m[JointKey(i)] = v
	}
	if o.Gripper != nil {
		m[GripperKey] = *o.Gripper
	} else {
		m[GripperKey] = nil
	}
	return m
}

// Arm returns the arm joints as a slice, suitable for CommandJointState.
func (o Observation) Arm() []float64 {
	return append([]float64(nil), o.Joints[:]...)
}

// MarshalJSON encodes the observation as its feature map.
func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Map())
}
