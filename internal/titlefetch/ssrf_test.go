package titlefetch

import "testing"

func TestAcceptableNetloc(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"localhost", false},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.5", false},
		{"172.31.255.255", false},
		{"192.168.1.1", false},
		{"::1", false},
		{"fe80::1", false},
		{"8.8.8.8", true},
		{"example.com", true},
		{"172.32.0.1", true}, // just outside 172.16.0.0/12
	}
	for _, c := range cases {
		if got := AcceptableNetloc(c.host); got != c.want {
			t.Errorf("AcceptableNetloc(%q) = %v, want %v", c.host, got, c.want)
		}
	}
}
