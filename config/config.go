package config

import (
	"fmt"
	"net/netip"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// Subnet places one subnet in an availability zone.
type Subnet struct {
	Az   string `json:"az" yaml:"az"`
	Cidr string `json:"cidr" yaml:"cidr"`
}

// Subnets holds both reachability tiers.
type Subnets struct {
	Public  []Subnet `json:"public" yaml:"public"`
	Private []Subnet `json:"private" yaml:"private"`
}

// Vpc config
type Vpc struct {
	Name    string  `json:"name" yaml:"name"`
	Cidr    string  `json:"cidr" yaml:"cidr"`
	Subnets Subnets `json:"subnets" yaml:"subnets"`
}

// Database config. Deletion protection defaults to off: this stack accepts
// data loss on destroy, which is not a production setting.
type Database struct {
	Name               string `json:"name" yaml:"name"`
	Username           string `json:"username" yaml:"username"`
	EngineVersion      string `json:"engineVersion" yaml:"engineVersion"`
	InstanceClass      string `json:"instanceClass" yaml:"instanceClass"`
	AllocatedStorage   int    `json:"allocatedStorage" yaml:"allocatedStorage"`
	StorageType        string `json:"storageType" yaml:"storageType"`
	Port               int    `json:"port" yaml:"port"`
	MultiAz            *bool  `json:"multiAz" yaml:"multiAz"`
	DeletionProtection bool   `json:"deletionProtection" yaml:"deletionProtection"`
}

// Service config for the load-balanced container.
type Service struct {
	Image            string `json:"image" yaml:"image"`
	ContainerPort    int    `json:"containerPort" yaml:"containerPort"`
	Cpu              int    `json:"cpu" yaml:"cpu"`
	Memory           int    `json:"memory" yaml:"memory"`
	DesiredCount     int    `json:"desiredCount" yaml:"desiredCount"`
	HealthCheckPath  string `json:"healthCheckPath" yaml:"healthCheckPath"`
	LogRetentionDays int    `json:"logRetentionDays" yaml:"logRetentionDays"`
}

// DeploymentConfig is the full stack configuration. Account and region are
// deliberately absent: the aws provider reads them from its own config.
type DeploymentConfig struct {
	Vpc      Vpc      `json:"vpc" yaml:"vpc"`
	Database Database `json:"database" yaml:"database"`
	Service  Service  `json:"service" yaml:"service"`
}

// Load reads the "deployment" config object from the stack, fills defaults
// and validates it. This is the only place the program can fail on its own;
// everything after is declaration handed to the engine.
func Load(ctx *pulumi.Context) (*DeploymentConfig, error) {
	var cfg DeploymentConfig
	conf := config.New(ctx, "")
	conf.RequireObject("deployment", &cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every optional field with the stack's standard value.
func (c *DeploymentConfig) ApplyDefaults() {
	if c.Vpc.Name == "" {
		c.Vpc.Name = "sonarqube"
	}
	if c.Database.Name == "" {
		c.Database.Name = "sonarqube"
	}
	if c.Database.Username == "" {
		c.Database.Username = "sonar"
	}
	if c.Database.EngineVersion == "" {
		c.Database.EngineVersion = "14"
	}
	if c.Database.InstanceClass == "" {
		c.Database.InstanceClass = "db.t3.medium"
	}
	if c.Database.AllocatedStorage == 0 {
		c.Database.AllocatedStorage = 20
	}
	if c.Database.StorageType == "" {
		c.Database.StorageType = "gp2"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.MultiAz == nil {
		multiAz := true
		c.Database.MultiAz = &multiAz
	}
	if c.Service.Image == "" {
		c.Service.Image = "sonarqube:enterprise"
	}
	if c.Service.ContainerPort == 0 {
		c.Service.ContainerPort = 9000
	}
	if c.Service.Cpu == 0 {
		c.Service.Cpu = 2048
	}
	if c.Service.Memory == 0 {
		c.Service.Memory = 4096
	}
	if c.Service.DesiredCount == 0 {
		c.Service.DesiredCount = 1
	}
	if c.Service.HealthCheckPath == "" {
		c.Service.HealthCheckPath = "/sessions/new"
	}
	if c.Service.LogRetentionDays == 0 {
		c.Service.LogRetentionDays = 30
	}
}

// Validate checks the configuration before any resource is declared.
func (c *DeploymentConfig) Validate() error {
	vpcBlock, err := netip.ParsePrefix(c.Vpc.Cidr)
	if err != nil {
		return fmt.Errorf("vpc.cidr %q: %w", c.Vpc.Cidr, err)
	}

	if err := c.validateTier("public", c.Vpc.Subnets.Public, vpcBlock); err != nil {
		return err
	}
	if err := c.validateTier("private", c.Vpc.Subnets.Private, vpcBlock); err != nil {
		return err
	}

	// Every private subnet routes its egress through a NAT gateway placed in
	// the public subnet of the same zone.
	publicAzs := make(map[string]bool, len(c.Vpc.Subnets.Public))
	for _, s := range c.Vpc.Subnets.Public {
		publicAzs[s.Az] = true
	}
	for _, s := range c.Vpc.Subnets.Private {
		if !publicAzs[s.Az] {
			return fmt.Errorf("private subnet in %s has no public subnet in the same zone for NAT egress", s.Az)
		}
	}

	if c.Database.AllocatedStorage < 5 {
		return fmt.Errorf("database.allocatedStorage %d is below the RDS minimum", c.Database.AllocatedStorage)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port %d out of range", c.Database.Port)
	}
	if c.Service.DesiredCount < 1 {
		return fmt.Errorf("service.desiredCount must be at least 1, got %d", c.Service.DesiredCount)
	}
	if c.Service.Cpu < 256 || c.Service.Memory < 512 {
		return fmt.Errorf("service sizing %d cpu / %d MiB below Fargate minimums", c.Service.Cpu, c.Service.Memory)
	}
	if c.Service.HealthCheckPath == "" || c.Service.HealthCheckPath[0] != '/' {
		return fmt.Errorf("service.healthCheckPath %q must start with /", c.Service.HealthCheckPath)
	}
	return nil
}

func (c *DeploymentConfig) validateTier(tier string, subnets []Subnet, vpcBlock netip.Prefix) error {
	azs := make(map[string]bool, len(subnets))
	for _, s := range subnets {
		block, err := netip.ParsePrefix(s.Cidr)
		if err != nil {
			return fmt.Errorf("%s subnet cidr %q: %w", tier, s.Cidr, err)
		}
		if block.Bits() < vpcBlock.Bits() || !vpcBlock.Contains(block.Addr()) {
			return fmt.Errorf("%s subnet %s is not contained in vpc cidr %s", tier, s.Cidr, c.Vpc.Cidr)
		}
		if s.Az == "" {
			return fmt.Errorf("%s subnet %s has no availability zone", tier, s.Cidr)
		}
		azs[s.Az] = true
	}
	if len(azs) < 2 {
		return fmt.Errorf("%s tier spans %d availability zones, need at least 2", tier, len(azs))
	}
	return nil
}
