// Package config loads the YAML neighbor configuration, the typed
// object the reactor builds its neighbor set from (§6.2).
package config

import (
	"fmt"
	"os"

	"github.com/ebgpd/ebgpd/bgp"
	"gopkg.in/yaml.v3"
)

// AddPathMode is the per-family ADD-PATH mode a neighbor advertises.
type AddPathMode string

const (
	AddPathDisable AddPathMode = "disable"
	AddPathSend    AddPathMode = "send"
	AddPathReceive AddPathMode = "receive"
	AddPathBoth    AddPathMode = "both"
)

// FamilyConfig is one `family` stanza: the AFI/SAFI this neighbor
// exchanges, plus its ADD-PATH mode.
type FamilyConfig struct {
	AFI     string      `yaml:"afi"`
	SAFI    string      `yaml:"safi"`
	AddPath AddPathMode `yaml:"add-path,omitempty"`
}

// NexthopConfig is a `nexthop <afi> <safi> <nh-afi>` stanza, used when
// a family's NLRI is carried with a next-hop of a different address
// family (e.g. IPv6 NLRI reachable via an IPv4-mapped next-hop).
type NexthopConfig struct {
	AFI   string `yaml:"afi"`
	SAFI  string `yaml:"safi"`
	NhAFI string `yaml:"nh-afi"`
}

// APISubscription is the per-event subscription mask for the external
// API (§4.8): which event types a subscriber receives for this
// neighbor.
type APISubscription struct {
	State        bool `yaml:"state"`
	Update       bool `yaml:"update"`
	Refresh      bool `yaml:"refresh"`
	Notification bool `yaml:"notification"`
	Open         bool `yaml:"open"`
	Keepalive    bool `yaml:"keepalive"`
	Operational  bool `yaml:"operational"`
}

// Neighbor is one configured BGP session.
type Neighbor struct {
	RouterID       string          `yaml:"router-id"`
	LocalAddress   string          `yaml:"local-address"`
	LocalAS        bgp.ASN         `yaml:"local-as"`
	PeerAddress    string          `yaml:"peer-address"`
	PeerAS         bgp.ASN         `yaml:"peer-as"`
	HoldTime       uint16          `yaml:"hold-time"`
	Connect        bool            `yaml:"connect"`
	Listen         bool            `yaml:"listen"`
	Passive        bool            `yaml:"passive"`
	Port           int             `yaml:"port,omitempty"`
	MD5Password    string          `yaml:"md5-password,omitempty"`
	MD5Base64      bool            `yaml:"md5-base64,omitempty"`
	SourceInterface string         `yaml:"source-interface,omitempty"`
	OutgoingTTL    int             `yaml:"outgoing-ttl,omitempty"`
	IncomingTTL    int             `yaml:"incoming-ttl,omitempty"`
	Families       []FamilyConfig  `yaml:"family"`
	Nexthops       []NexthopConfig `yaml:"nexthop,omitempty"`
	RouteRefresh   bool            `yaml:"route-refresh,omitempty"`
	GracefulRestartSeconds int     `yaml:"graceful-restart,omitempty"`
	PreserveFamilies []FamilyConfig `yaml:"preserve-families,omitempty"`
	GroupUpdates   bool            `yaml:"group-updates,omitempty"`
	AdjRIBIn       bool            `yaml:"adj-rib-in,omitempty"`
	AdjRIBOut      bool            `yaml:"adj-rib-out,omitempty"`
	ManualEOR      bool            `yaml:"manual-eor,omitempty"`
	API            APISubscription `yaml:"api,omitempty"`
}

// Configuration is the top-level loaded document: one process, many
// neighbors.
type Configuration struct {
	// StateDir, when set, is where the reactor persists a per-neighbor
	// route-table snapshot after every externally-driven mutation
	// (atomic write, fsync, rename over the target, prior .backup kept).
	// Persistence is disabled when empty.
	StateDir  string     `yaml:"state-dir,omitempty"`
	Neighbors []Neighbor `yaml:"neighbors"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Configuration
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields every neighbor must supply regardless of
// its session mode.
func (c *Configuration) Validate() error {
	for i, n := range c.Neighbors {
		if n.PeerAddress == "" {
			return fmt.Errorf("config: neighbor %d missing peer-address", i)
		}
		if n.LocalAS == 0 {
			return fmt.Errorf("config: neighbor %s missing local-as", n.PeerAddress)
		}
		if n.PeerAS == 0 {
			return fmt.Errorf("config: neighbor %s missing peer-as", n.PeerAddress)
		}
		if n.MD5Base64 && n.MD5Password == "" {
			return fmt.Errorf("config: neighbor %s sets md5-base64 without md5-password", n.PeerAddress)
		}
	}
	return nil
}

// Family resolves the stanza's textual AFI/SAFI into a bgp.Family.
func (f FamilyConfig) Family() (bgp.Family, error) {
	afi, err := parseAFI(f.AFI)
	if err != nil {
		return bgp.Family{}, err
	}
	safi, err := parseSAFI(f.SAFI)
	if err != nil {
		return bgp.Family{}, err
	}
	return bgp.Family{AFI: afi, SAFI: safi}, nil
}

func parseAFI(s string) (bgp.AFI, error) {
	switch s {
	case "ipv4":
		return bgp.AFIIPv4, nil
	case "ipv6":
		return bgp.AFIIPv6, nil
	case "l2vpn":
		return bgp.AFIL2VPN, nil
	default:
		return 0, fmt.Errorf("config: unrecognised afi %q", s)
	}
}

func parseSAFI(s string) (bgp.SAFI, error) {
	switch s {
	case "unicast":
		return bgp.SAFIUnicast, nil
	case "multicast":
		return bgp.SAFIMulticast, nil
	case "mpls-labeled-unicast":
		return bgp.SAFIMPLS, nil
	case "mpls-vpn":
		return bgp.SAFIMPLSVPN, nil
	case "mcast-vpn":
		return bgp.SAFIMCastVPN, nil
	case "vpls":
		return bgp.SAFIVPLS, nil
	case "evpn":
		return bgp.SAFIEVPN, nil
	case "bgp-ls":
		return bgp.SAFIBGPLS, nil
	case "bgp-ls-vpn":
		return bgp.SAFIBGPLSVPN, nil
	case "rtc":
		return bgp.SAFIRTC, nil
	case "flow":
		return bgp.SAFIFlowSpec, nil
	case "flow-vpn":
		return bgp.SAFIFlowSpecVPN, nil
	case "mup":
		return bgp.SAFIMUP, nil
	default:
		return 0, fmt.Errorf("config: unrecognised safi %q", s)
	}
}
