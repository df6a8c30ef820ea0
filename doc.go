// Package isoteleop bridges a hand-held Dynamixel leader rig and a UR5e.
//
// The leader rig's raw encoder angles are turned into a calibrated, smoothed
// joint state that a LeRobot-style recorder consumes as its teleoperation
// action. The per-joint offsets that align the rig with the robot are found
// once, before a session, by comparing a rig sample with the robot's pose.
//
// # Installation
//
//	go install github.com/gwillem/isoteleop/cmd/isoteleop@latest
//
// # Usage
//
// Hold the leader arm in the robot's current pose and compute the offsets:
//
//	isoteleop offsets --write
//
// Then stream the joint state:
//
//	isoteleop teleoperate
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/isoteleop: CLI with offsets, teleoperate and ports commands
//   - pkg/robot: Driver interface, joint state translator, configuration
//   - pkg/calibrate: Offset search against a reference pose
//   - pkg/dynamixel: Dynamixel Protocol 2.0 serial driver
//   - pkg/ur: UR controller real-time interface reader
//   - pkg/teleop: Teleoperation control loop
package isoteleop
