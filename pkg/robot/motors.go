// Package robot translates raw leader-rig encoder angles into a calibrated joint
// state and back.
package robot

import "fmt"

// NumArmJoints is the number of arm joints on the leader rig, excluding the gripper.
const NumArmJoints = 6

// GripperKey is the observation key for the normalized gripper position.
const GripperKey = "gripper_position"

// JointKey returns the observation key for arm joint i (zero-based), e.g. "joint_1.pos".
func JointKey(i int) string {
	return fmt.Sprintf("joint_%d.pos", i+1)
}

// AllJointKeys returns all arm joint keys in order.
func AllJointKeys() []string {
	keys := make([]string, NumArmJoints)
	for i := range keys {
		keys[i] = JointKey(i)
	}
	return keys
}
