package nlri

import (
	"net"
	"testing"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/qualifier"
	"github.com/stretchr/testify/require"
)

func TestPrefixRoundTrip(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	p := NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	parsed, n, err := UnpackPrefix(family, p.Bytes())
	require.NoError(t, err)
	require.Equal(t, len(p.Bytes()), n)
	require.Equal(t, 24, parsed.Length())
	require.Equal(t, "192.0.2.0/24", parsed.String())
}

func TestLabeledPrefixRoundTrip(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIMPLS}
	labels, err := qualifier.NewLabels(100)
	require.NoError(t, err)
	lp := NewLabeledPrefix(family, labels, net.ParseIP("10.0.0.0").To4(), 24)
	parsed, n, err := UnpackLabeledPrefix(family, lp.Bytes(), false)
	require.NoError(t, err)
	require.Equal(t, len(lp.Bytes()), n)
	require.Equal(t, 24, parsed.Length())
	require.Equal(t, []uint32{100}, parsed.Labels().Values())
}

func TestVPNPrefixRoundTrip(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIMPLSVPN}
	labels, err := qualifier.NewLabels(200)
	require.NoError(t, err)
	rd := qualifier.NewRDASN2(65000, 1)
	vp := NewVPNPrefix(family, rd, labels, net.ParseIP("172.16.0.0").To4(), 16)
	parsed, n, err := UnpackVPNPrefix(family, vp.Bytes(), false)
	require.NoError(t, err)
	require.Equal(t, len(vp.Bytes()), n)
	require.Equal(t, rd, parsed.RD())
	require.Equal(t, 16, parsed.Length())
}

func TestFlowSpecBuilderRejectsOutOfOrderComponents(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIFlowSpec}
	b := NewFlowSpecBuilder(family).
		Add(Component{Type: FlowIPProtocol, Values: []NumericValue{{Op: NumOpEQ, Value: 6, Width: 1}}}).
		Add(Component{Type: FlowDestPrefix, Prefix: NewPrefix(family, net.ParseIP("198.51.100.0").To4(), 24)})
	_, err := b.Build()
	require.Error(t, err)
}

func TestFlowSpecRuleRoundTrip(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIFlowSpec}
	dest := NewPrefix(family, net.ParseIP("198.51.100.0").To4(), 24)
	rule, err := NewFlowSpecBuilder(family).
		Add(Component{Type: FlowDestPrefix, Prefix: dest}).
		Add(Component{Type: FlowIPProtocol, Values: []NumericValue{{Op: NumOpEQ, Value: 6, Width: 1}}}).
		Build()
	require.NoError(t, err)

	parsed, n, err := UnpackRule(family, rule.Bytes())
	require.NoError(t, err)
	require.Equal(t, len(rule.Bytes()), n)
	require.Len(t, parsed.Components(), 2)
	require.Equal(t, FlowDestPrefix, parsed.Components()[0].Type)
}

func TestRTCWildcardRoundTrip(t *testing.T) {
	w := NewRTCWildcard()
	parsed, n, err := UnpackRTCRoute(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, parsed.Wildcard())
}

func TestEVPNMACIPAdvertisement(t *testing.T) {
	rd := qualifier.NewRDASN2(65000, 5)
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	labels, _ := qualifier.NewLabels(10)
	route := NewMACIPAdvertisement(rd, qualifier.ZeroESI, 0, mac, net.ParseIP("10.0.0.1"), labels)
	parsed, n, err := UnpackEVPNRoute(route.Bytes())
	require.NoError(t, err)
	require.Equal(t, len(route.Bytes()), n)
	require.Equal(t, EVPNMACIPAdvertisement, parsed.Type())
}
