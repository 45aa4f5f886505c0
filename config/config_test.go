package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *DeploymentConfig {
	cfg := &DeploymentConfig{
		Vpc: Vpc{
			Name: "sonarqube",
			Cidr: "10.0.0.0/16",
			Subnets: Subnets{
				Public: []Subnet{
					{Az: "eu-west-1a", Cidr: "10.0.0.0/20"},
					{Az: "eu-west-1b", Cidr: "10.0.16.0/20"},
				},
				Private: []Subnet{
					{Az: "eu-west-1a", Cidr: "10.0.128.0/20"},
					{Az: "eu-west-1b", Cidr: "10.0.144.0/20"},
				},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, "sonarqube", cfg.Database.Name)
	assert.Equal(t, "sonar", cfg.Database.Username)
	assert.Equal(t, "14", cfg.Database.EngineVersion)
	assert.Equal(t, "db.t3.medium", cfg.Database.InstanceClass)
	assert.Equal(t, 20, cfg.Database.AllocatedStorage)
	assert.Equal(t, "gp2", cfg.Database.StorageType)
	assert.Equal(t, 5432, cfg.Database.Port)
	require.NotNil(t, cfg.Database.MultiAz)
	assert.True(t, *cfg.Database.MultiAz)
	assert.False(t, cfg.Database.DeletionProtection)

	assert.Equal(t, "sonarqube:enterprise", cfg.Service.Image)
	assert.Equal(t, 9000, cfg.Service.ContainerPort)
	assert.Equal(t, 2048, cfg.Service.Cpu)
	assert.Equal(t, 4096, cfg.Service.Memory)
	assert.Equal(t, 1, cfg.Service.DesiredCount)
	assert.Equal(t, "/sessions/new", cfg.Service.HealthCheckPath)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := testConfig()
	cfg.Database.InstanceClass = "db.r5.large"
	cfg.Service.DesiredCount = 3
	cfg.ApplyDefaults()

	assert.Equal(t, "db.r5.large", cfg.Database.InstanceClass)
	assert.Equal(t, 3, cfg.Service.DesiredCount)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, testConfig().Validate())
}

func TestValidateRejectsMalformedVpcCidr(t *testing.T) {
	cfg := testConfig()
	cfg.Vpc.Cidr = "10.0.0.0"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vpc.cidr")
}

func TestValidateRejectsMalformedSubnetCidr(t *testing.T) {
	cfg := testConfig()
	cfg.Vpc.Subnets.Private[0].Cidr = "not-a-cidr"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSubnetOutsideVpcBlock(t *testing.T) {
	cfg := testConfig()
	cfg.Vpc.Subnets.Private[0].Cidr = "192.168.0.0/24"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not contained")
}

func TestValidateRejectsSubnetWiderThanVpcBlock(t *testing.T) {
	cfg := testConfig()
	cfg.Vpc.Subnets.Public[0].Cidr = "10.0.0.0/8"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresTwoZonesPerTier(t *testing.T) {
	cfg := testConfig()
	for i := range cfg.Vpc.Subnets.Private {
		cfg.Vpc.Subnets.Private[i].Az = "eu-west-1a"
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2")
}

func TestValidateRequiresPublicSubnetForNatEgress(t *testing.T) {
	cfg := testConfig()
	cfg.Vpc.Subnets.Private[1].Az = "eu-west-1c"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NAT egress")
}

func TestValidateRejectsNonPositiveDesiredCount(t *testing.T) {
	cfg := testConfig()
	cfg.Service.DesiredCount = -1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsRelativeHealthCheckPath(t *testing.T) {
	cfg := testConfig()
	cfg.Service.HealthCheckPath = "sessions/new"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUndersizedService(t *testing.T) {
	cfg := testConfig()
	cfg.Service.Memory = 128
	require.Error(t, cfg.Validate())
}
