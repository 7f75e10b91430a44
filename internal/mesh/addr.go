package mesh

import "net"

// Tailnet addresses live in the CGNAT range.
var cgnat = mustCIDR("100.64.0.0/10")

func mustCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}

// firstMeshIPv4 returns the first IPv4 address in the list, preferring
// addresses in the tailnet CGNAT range over anything else.
func firstMeshIPv4(addrs []string) string {
	var fallback string
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil || ip.To4() == nil {
			continue
		}
		if cgnat.Contains(ip) {
			return a
		}
		if fallback == "" {
			fallback = a
		}
	}
	return fallback
}
