package robot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "cfg.yaml"

// Driver backends selectable in DynamixelConfig.Backend.
const (
	BackendDynamixel = "dynamixel"
	BackendFeetech   = "feetech"
	BackendSim       = "sim"
)

// Config holds the recorder configuration file
type Config struct {
	Record RecordConfig `yaml:"record"`
}

// RecordConfig groups the teleoperator and robot sections
type RecordConfig struct {
	Teleop TeleopConfig `yaml:"teleop"`
	Robot  URConfig     `yaml:"robot"`
}

// TeleopConfig holds the leader rig settings
type TeleopConfig struct {
	ControlMode     string          `yaml:"control_mode,omitempty"`
	StartJoints     []float64       `yaml:"start_joints,omitempty"`
	DynamixelConfig DynamixelConfig `yaml:"dynamixel_config"`
}

// DynamixelConfig holds the leader rig bus and calibration
type DynamixelConfig struct {
	Backend      string    `yaml:"backend,omitempty"`
	Port         string    `yaml:"port"`
	BaudRate     int       `yaml:"baudrate,omitempty"`
	UseGripper   bool      `yaml:"use_gripper"`
	JointIDs     []int     `yaml:"joint_ids"`
	JointOffsets []float64 `yaml:"joint_offsets"`
	JointSigns   []int     `yaml:"joint_signs"`
	// GripperConfig is [id, closed_raw, open_raw].
	GripperConfig []float64 `yaml:"gripper_config,omitempty"`
}

// URConfig holds the reference robot connection
type URConfig struct {
	IP string `yaml:"ip"`
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	dxl := &c.Record.Teleop.DynamixelConfig
	if dxl.Backend == "" {
		dxl.Backend = BackendDynamixel
	}
	if dxl.BaudRate == 0 {
		dxl.BaudRate = 57600
		if dxl.Backend == BackendFeetech {
			dxl.BaudRate = 1_000_000
		}
	}
	if c.Record.Teleop.ControlMode == "" {
		c.Record.Teleop.ControlMode = "isoteleop"
	}
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TranslatorConfig converts the leader rig section into translator settings.
func (c *Config) TranslatorConfig() (TranslatorConfig, error) {
	dxl := c.Record.Teleop.DynamixelConfig
	tc := TranslatorConfig{
		JointIDs:   dxl.JointIDs,
		Offsets:    dxl.JointOffsets,
		Signs:      dxl.JointSigns,
		UseGripper: dxl.UseGripper,
	}
	if dxl.UseGripper {
		if len(dxl.GripperConfig) != 3 {
			return TranslatorConfig{}, fmt.Errorf("%w: gripper_config must be [id, closed, open], got %v", ErrConfiguration, dxl.GripperConfig)
		}
		tc.Gripper = &GripperConfig{
			ID:        int(dxl.GripperConfig[0]),
			ClosedRaw: dxl.GripperConfig[1],
			OpenRaw:   dxl.GripperConfig[2],
		}
	}
	return tc, tc.Validate()
}
