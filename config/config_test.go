package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
neighbors:
  - peer-address: 203.0.113.1
    local-as: 65001
    peer-as: 65002
    hold-time: 90
    family:
      - afi: ipv4
        safi: unicast
      - afi: ipv6
        safi: unicast
        add-path: both
    route-refresh: true
    graceful-restart: 120
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ebgpd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoadParsesNeighbors(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)
	require.Len(t, cfg.Neighbors, 1)

	n := cfg.Neighbors[0]
	require.Equal(t, "203.0.113.1", n.PeerAddress)
	require.EqualValues(t, 65001, n.LocalAS)
	require.Len(t, n.Families, 2)
	require.Equal(t, AddPathBoth, n.Families[1].AddPath)

	family, err := n.Families[1].Family()
	require.NoError(t, err)
	require.Equal(t, "ipv6", family.AFI.String())
}

func TestValidateRejectsMissingPeerAS(t *testing.T) {
	cfg := &Configuration{Neighbors: []Neighbor{{PeerAddress: "203.0.113.1", LocalAS: 65001}}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBase64WithoutPassword(t *testing.T) {
	cfg := &Configuration{Neighbors: []Neighbor{{
		PeerAddress: "203.0.113.1", LocalAS: 65001, PeerAS: 65002, MD5Base64: true,
	}}}
	require.Error(t, cfg.Validate())
}
