package vpc

import (
	"github.com/devtools-infra/sonarqube-aws/config"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Vpc declares the network: the VPC itself plus a public tier and a
// private-with-egress tier, each spread over at least two availability
// zones. The private tier is never routable from the internet gateway.
type Vpc struct {
	ctx *pulumi.Context
	cfg *config.DeploymentConfig

	Vpc            *ec2.Vpc
	PublicSubnets  []*ec2.Subnet
	PrivateSubnets []*ec2.Subnet
}

func NewVpc(ctx *pulumi.Context, cfg *config.DeploymentConfig) *Vpc {
	return &Vpc{
		ctx: ctx,
		cfg: cfg,
	}
}

func (v *Vpc) CreateVpc() error {
	vpc, err := ec2.NewVpc(v.ctx, v.ctx.Stack()+"-vpc", &ec2.VpcArgs{
		CidrBlock:          pulumi.String(v.cfg.Vpc.Cidr),
		EnableDnsSupport:   pulumi.Bool(true),
		EnableDnsHostnames: pulumi.Bool(true),
		Tags: pulumi.StringMap{
			"Name":           pulumi.String(v.cfg.Vpc.Name),
			"pulumi-stack":   pulumi.String(v.ctx.Stack()),
			"pulumi-project": pulumi.String(v.ctx.Project()),
		},
	})
	if err != nil {
		return err
	}

	v.Vpc = vpc
	v.ctx.Export("vpc-id", vpc.ID())

	return nil
}
