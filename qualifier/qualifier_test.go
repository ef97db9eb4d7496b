package qualifier

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRDRoundTrip(t *testing.T) {
	rd := NewRDASN2(65000, 1)
	require.Equal(t, "65000:1", rd.String())

	parsed, err := ParseRD("65000:1")
	require.NoError(t, err)
	require.Equal(t, rd, parsed)

	back, err := UnpackRD(rd.Bytes())
	require.NoError(t, err)
	require.Equal(t, rd, back)
}

func TestRDIPv4Form(t *testing.T) {
	rd := NewRDIPv4(net.ParseIP("1.2.3.4"), 5)
	require.Equal(t, "1.2.3.4:5", rd.String())
	parsed, err := ParseRD("1.2.3.4:5")
	require.NoError(t, err)
	require.Equal(t, rd, parsed)
}

func TestZeroRD(t *testing.T) {
	require.True(t, Zero.IsZero())
	require.False(t, NewRDASN2(1, 1).IsZero())
}

func TestLabelsRoundTrip(t *testing.T) {
	labels, err := NewLabels(100, 200)
	require.NoError(t, err)
	require.Equal(t, []uint32{100, 200}, labels.Values())

	back, n, err := UnpackLabels(labels.Bytes(), false)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, labels.Values(), back.Values())
}

func TestLabelsRejectsOverflow(t *testing.T) {
	_, err := NewLabels(1 << 21)
	require.Error(t, err)
}

func TestPoolInterns(t *testing.T) {
	pool := NewRDPool()
	a := pool.Intern(NewRDASN2(1, 1))
	b := pool.Intern(NewRDASN2(1, 1))
	require.Equal(t, a, b)
	require.Equal(t, 1, pool.pool.Len())
}
