package vpc

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

func (v *Vpc) CreateSubnets() error {
	// Public tier: routable through the internet gateway, public IPs on
	// launch so the load balancer and NAT gateways can face outward.
	var publicSubnets []*ec2.Subnet
	publicByAz := make(map[string]*ec2.Subnet, len(v.cfg.Vpc.Subnets.Public))
	for i, subnetConfig := range v.cfg.Vpc.Subnets.Public {
		subnetName := fmt.Sprintf("public%d", i)
		subnet, err := v.createSubnet(subnetConfig.Cidr, subnetConfig.Az, subnetName, true)
		if err != nil {
			return err
		}
		publicSubnets = append(publicSubnets, subnet)
		publicByAz[subnetConfig.Az] = subnet
	}

	if err := v.createInternetGateway(publicSubnets); err != nil {
		return err
	}

	// Private tier: no route from the internet gateway, outbound only
	// through a NAT gateway in the public subnet of the same zone.
	var privateSubnets []*ec2.Subnet
	for i, subnetConfig := range v.cfg.Vpc.Subnets.Private {
		subnetName := fmt.Sprintf("private%d", i)
		subnet, err := v.createSubnet(subnetConfig.Cidr, subnetConfig.Az, subnetName, false)
		if err != nil {
			return err
		}
		privateSubnets = append(privateSubnets, subnet)

		if err := v.createNatGateway(i, publicByAz[subnetConfig.Az], subnet); err != nil {
			return err
		}
	}

	v.PublicSubnets = publicSubnets
	v.PrivateSubnets = privateSubnets

	v.ctx.Export("public-subnet-ids", SubnetIDs(publicSubnets))
	v.ctx.Export("private-subnet-ids", SubnetIDs(privateSubnets))

	return nil
}

// SubnetIDs returns the given tier's subnet ids as provider inputs.
func SubnetIDs(subnets []*ec2.Subnet) pulumi.StringArray {
	var ids pulumi.StringArray
	for _, subnet := range subnets {
		ids = append(ids, subnet.ID())
	}
	return ids
}

func (v *Vpc) createSubnet(cidr, az, name string, public bool) (*ec2.Subnet, error) {
	subnet, err := ec2.NewSubnet(v.ctx, v.ctx.Stack()+"-subnet-"+name, &ec2.SubnetArgs{
		CidrBlock:           pulumi.String(cidr),
		VpcId:               v.Vpc.ID(),
		AvailabilityZone:    pulumi.String(az),
		MapPublicIpOnLaunch: pulumi.Bool(public),
		Tags: pulumi.StringMap{
			"Name": pulumi.String(name),
		},
	}, pulumi.Parent(v.Vpc))
	if err != nil {
		return nil, err
	}

	return subnet, nil
}

func (v *Vpc) createInternetGateway(subnets []*ec2.Subnet) error {
	gw, err := ec2.NewInternetGateway(v.ctx, "vpc-"+v.cfg.Vpc.Name+"-igw", &ec2.InternetGatewayArgs{
		VpcId: v.Vpc.ID(),
	}, pulumi.Parent(v.Vpc))
	if err != nil {
		return err
	}

	rt, err := ec2.NewRouteTable(v.ctx, "vpc-"+v.cfg.Vpc.Name+"-publicRT", &ec2.RouteTableArgs{
		VpcId: v.Vpc.ID(),
	}, pulumi.Parent(v.Vpc))
	if err != nil {
		return err
	}

	_, err = ec2.NewRoute(v.ctx, "vpc-"+v.cfg.Vpc.Name+"-publicRT-defRoute", &ec2.RouteArgs{
		RouteTableId:         rt.ID(),
		DestinationCidrBlock: pulumi.String("0.0.0.0/0"),
		GatewayId:            gw.ID(),
	}, pulumi.Parent(rt))
	if err != nil {
		return err
	}

	for i, subnet := range subnets {
		_, err = ec2.NewRouteTableAssociation(v.ctx, fmt.Sprintf("vpc-"+v.cfg.Vpc.Name+"-publicRT-assoc-%d", i), &ec2.RouteTableAssociationArgs{
			SubnetId:     subnet.ID(),
			RouteTableId: rt.ID(),
		}, pulumi.Parent(rt))
		if err != nil {
			return err
		}
	}

	return nil
}

func (v *Vpc) createNatGateway(i int, publicSubnet, privateSubnet *ec2.Subnet) error {
	eip, err := ec2.NewEip(v.ctx, fmt.Sprintf("natGw%dIP", i), &ec2.EipArgs{
		Domain: pulumi.String("vpc"),
	}, pulumi.Parent(v.Vpc))
	if err != nil {
		return err
	}

	gw, err := ec2.NewNatGateway(v.ctx, fmt.Sprintf("natGw%d", i), &ec2.NatGatewayArgs{
		SubnetId:     publicSubnet.ID(),
		AllocationId: eip.ID(),
	}, pulumi.Parent(eip))
	if err != nil {
		return err
	}

	rt, err := ec2.NewRouteTable(v.ctx, fmt.Sprintf("natGw%dRT", i), &ec2.RouteTableArgs{
		VpcId: v.Vpc.ID(),
	}, pulumi.Parent(gw))
	if err != nil {
		return err
	}

	_, err = ec2.NewRoute(v.ctx, fmt.Sprintf("natGw%dDefRoute", i), &ec2.RouteArgs{
		RouteTableId:         rt.ID(),
		DestinationCidrBlock: pulumi.String("0.0.0.0/0"),
		NatGatewayId:         gw.ID(),
	}, pulumi.Parent(rt))
	if err != nil {
		return err
	}

	_, err = ec2.NewRouteTableAssociation(v.ctx, fmt.Sprintf("natGw%dRTAssoc", i), &ec2.RouteTableAssociationArgs{
		SubnetId:     privateSubnet.ID(),
		RouteTableId: rt.ID(),
	}, pulumi.Parent(rt))
	if err != nil {
		return err
	}

	return nil
}
