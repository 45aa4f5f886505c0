package ecs

import (
	"github.com/devtools-infra/sonarqube-aws/vpc"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	awsecs "github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecs"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lb"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const listenerPort = 80

// CreateService fronts the task with an internet-facing load balancer on
// the public tier and runs the tasks on the private tier. The load balancer
// group accepts clients on the listener port; the task group accepts the
// container port only from the load balancer. Both are outbound-open,
// unlike the database group: the container needs outbound internet for
// plugin and image fetches, the database does not.
func (e *Ecs) CreateService() error {
	albSg, err := ec2.NewSecurityGroup(e.ctx, e.ctx.Stack()+"-alb-sg", &ec2.SecurityGroupArgs{
		VpcId:       e.net.Vpc.ID(),
		Description: pulumi.String("Client traffic to the load balancer"),
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Protocol:    pulumi.String("tcp"),
				FromPort:    pulumi.Int(listenerPort),
				ToPort:      pulumi.Int(listenerPort),
				CidrBlocks:  pulumi.StringArray{pulumi.String("0.0.0.0/0")},
				Description: pulumi.String("HTTP from clients"),
			},
		},
		Egress: openEgress(),
	}, pulumi.Parent(e.net.Vpc))
	if err != nil {
		return err
	}

	serviceSg, err := ec2.NewSecurityGroup(e.ctx, e.ctx.Stack()+"-service-sg", &ec2.SecurityGroupArgs{
		VpcId:       e.net.Vpc.ID(),
		Description: pulumi.String("SonarQube task traffic"),
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Protocol:       pulumi.String("tcp"),
				FromPort:       pulumi.Int(e.cfg.Service.ContainerPort),
				ToPort:         pulumi.Int(e.cfg.Service.ContainerPort),
				SecurityGroups: pulumi.StringArray{albSg.ID()},
				Description:    pulumi.String("Container port from the load balancer"),
			},
		},
		Egress: openEgress(),
	}, pulumi.Parent(e.net.Vpc))
	if err != nil {
		return err
	}

	alb, err := lb.NewLoadBalancer(e.ctx, e.ctx.Stack()+"-alb", &lb.LoadBalancerArgs{
		Internal:         pulumi.Bool(false),
		LoadBalancerType: pulumi.String("application"),
		SecurityGroups:   pulumi.StringArray{albSg.ID()},
		Subnets:          vpc.SubnetIDs(e.net.PublicSubnets),
	})
	if err != nil {
		return err
	}

	targetGroup, err := lb.NewTargetGroup(e.ctx, e.ctx.Stack()+"-tg", &lb.TargetGroupArgs{
		Port:       pulumi.Int(e.cfg.Service.ContainerPort),
		Protocol:   pulumi.String("HTTP"),
		TargetType: pulumi.String("ip"),
		VpcId:      e.net.Vpc.ID(),
		HealthCheck: &lb.TargetGroupHealthCheckArgs{
			Path:    pulumi.String(e.cfg.Service.HealthCheckPath),
			Matcher: pulumi.String("200-399"),
		},
	}, pulumi.Parent(alb))
	if err != nil {
		return err
	}

	listener, err := lb.NewListener(e.ctx, e.ctx.Stack()+"-listener", &lb.ListenerArgs{
		LoadBalancerArn: alb.Arn,
		Port:            pulumi.Int(listenerPort),
		Protocol:        pulumi.String("HTTP"),
		DefaultActions: lb.ListenerDefaultActionArray{
			lb.ListenerDefaultActionArgs{
				Type:           pulumi.String("forward"),
				TargetGroupArn: targetGroup.Arn,
			},
		},
	}, pulumi.Parent(alb))
	if err != nil {
		return err
	}

	service, err := awsecs.NewService(e.ctx, e.ctx.Stack()+"-service", &awsecs.ServiceArgs{
		Cluster:        e.Cluster.Arn,
		TaskDefinition: e.TaskDefinition.Arn,
		DesiredCount:   pulumi.Int(e.cfg.Service.DesiredCount),
		LaunchType:     pulumi.String("FARGATE"),
		NetworkConfiguration: &awsecs.ServiceNetworkConfigurationArgs{
			Subnets:        vpc.SubnetIDs(e.net.PrivateSubnets),
			SecurityGroups: pulumi.StringArray{serviceSg.ID()},
			AssignPublicIp: pulumi.Bool(false),
		},
		LoadBalancers: awsecs.ServiceLoadBalancerArray{
			awsecs.ServiceLoadBalancerArgs{
				TargetGroupArn: targetGroup.Arn,
				ContainerName:  pulumi.String(containerName),
				ContainerPort:  pulumi.Int(e.cfg.Service.ContainerPort),
			},
		},
	}, pulumi.Parent(e.Cluster), pulumi.DependsOn([]pulumi.Resource{listener}))
	if err != nil {
		return err
	}

	e.TargetGroup = targetGroup
	e.Service = service

	e.ctx.Export("service-name", service.Name)
	e.ctx.Export("alb-dns-name", alb.DnsName)

	return nil
}

func openEgress() ec2.SecurityGroupEgressArray {
	return ec2.SecurityGroupEgressArray{
		ec2.SecurityGroupEgressArgs{
			Protocol:   pulumi.String("-1"),
			FromPort:   pulumi.Int(0),
			ToPort:     pulumi.Int(0),
			CidrBlocks: pulumi.StringArray{pulumi.String("0.0.0.0/0")},
		},
	}
}
