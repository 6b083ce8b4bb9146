package titlefetch

import "net"

// blocklist is the SSRF filter's network blocklist (spec.md §4.3).
var blocklist = []*net.IPNet{
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("::1/128"),
	mustParseCIDR("fe80::/10"),
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// AcceptableNetloc reports whether host may be fetched. A literal
// "localhost" is rejected. A host that parses as an IP is rejected
// iff it falls in the documented blocklist. Any other (non-numeric)
// hostname is accepted — DNS resolution is delegated to the HTTP
// client (spec.md §4.3, invariant 4).
func AcceptableNetloc(host string) bool {
	if host == "localhost" {
		return false
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}

	for _, n := range blocklist {
		if n.Contains(ip) {
			return false
		}
	}
	return true
}
