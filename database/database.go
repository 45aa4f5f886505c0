package database

import (
	"github.com/devtools-infra/sonarqube-aws/config"
	"github.com/devtools-infra/sonarqube-aws/vpc"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/rds"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/secretsmanager"
	"github.com/pulumi/pulumi-random/sdk/v4/go/random"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Database declares the shared credential secret, the database-side
// security group, and the managed PostgreSQL instance on the private tier.
type Database struct {
	ctx *pulumi.Context
	cfg *config.DeploymentConfig
	net *vpc.Vpc

	Password      *random.RandomPassword
	Secret        *secretsmanager.Secret
	SecurityGroup *ec2.SecurityGroup
	Instance      *rds.Instance
}

func NewDatabase(ctx *pulumi.Context, cfg *config.DeploymentConfig, net *vpc.Vpc) *Database {
	return &Database{
		ctx: ctx,
		cfg: cfg,
		net: net,
	}
}

// CreateSecurityGroup restricts the database to traffic from inside the
// VPC's own address range on the database port. No egress rules: the
// database has no reason to open outbound connections.
func (d *Database) CreateSecurityGroup() error {
	sg, err := ec2.NewSecurityGroup(d.ctx, d.ctx.Stack()+"-db-sg", &ec2.SecurityGroupArgs{
		VpcId:       d.net.Vpc.ID(),
		Description: pulumi.String("Database access from inside the VPC only"),
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Protocol:    pulumi.String("tcp"),
				FromPort:    pulumi.Int(d.cfg.Database.Port),
				ToPort:      pulumi.Int(d.cfg.Database.Port),
				CidrBlocks:  pulumi.StringArray{pulumi.String(d.cfg.Vpc.Cidr)},
				Description: pulumi.String("PostgreSQL from the VPC"),
			},
		},
	}, pulumi.Parent(d.net.Vpc))
	if err != nil {
		return err
	}

	d.SecurityGroup = sg

	return nil
}

func (d *Database) CreateInstance() error {
	subnetGroup, err := rds.NewSubnetGroup(d.ctx, d.ctx.Stack()+"-db-subnets", &rds.SubnetGroupArgs{
		SubnetIds:   vpc.SubnetIDs(d.net.PrivateSubnets),
		Description: pulumi.String("Private tier subnets for the database"),
	}, pulumi.Parent(d.net.Vpc))
	if err != nil {
		return err
	}

	if !d.cfg.Database.DeletionProtection {
		if err := d.ctx.Log.Warn("database deletion protection is disabled; destroying the stack loses all data", nil); err != nil {
			return err
		}
	}

	instance, err := rds.NewInstance(d.ctx, d.ctx.Stack()+"-db", &rds.InstanceArgs{
		Engine:              pulumi.String("postgres"),
		EngineVersion:       pulumi.String(d.cfg.Database.EngineVersion),
		InstanceClass:       pulumi.String(d.cfg.Database.InstanceClass),
		AllocatedStorage:    pulumi.Int(d.cfg.Database.AllocatedStorage),
		StorageType:         pulumi.String(d.cfg.Database.StorageType),
		MultiAz:             pulumi.Bool(*d.cfg.Database.MultiAz),
		DbName:              pulumi.String(d.cfg.Database.Name),
		Port:                pulumi.Int(d.cfg.Database.Port),
		Username:            pulumi.String(d.cfg.Database.Username),
		Password:            d.Password.Result,
		DbSubnetGroupName:   subnetGroup.Name,
		VpcSecurityGroupIds: pulumi.StringArray{d.SecurityGroup.ID()},
		PubliclyAccessible:  pulumi.Bool(false),
		DeletionProtection:  pulumi.Bool(d.cfg.Database.DeletionProtection),
		SkipFinalSnapshot:   pulumi.Bool(!d.cfg.Database.DeletionProtection),
	}, pulumi.Parent(subnetGroup))
	if err != nil {
		return err
	}

	d.Instance = instance

	return nil
}

// ConnectionURL assembles the JDBC URL from the instance's endpoint, which
// is a deferred value resolved by the engine after the instance exists.
func (d *Database) ConnectionURL() pulumi.StringOutput {
	return pulumi.Sprintf("jdbc:postgresql://%s:%d/%s", d.Instance.Address, d.Instance.Port, d.cfg.Database.Name)
}
