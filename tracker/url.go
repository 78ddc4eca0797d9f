package tracker

import (
	"fmt"
	"net/url"
	"strconv"
)

// defaultUDPTrackerPort is used whenever a udp:// tracker URL omits an explicit port.
const defaultUDPTrackerPort = 6969

// --------------------------------------------------------------------------------------------- //

/*
parseTrackerURL extracts the hostname and port AddTorrent needs from a tracker URL of the form
udp://host[:port]/..., per SPEC_FULL.md §6. Any other scheme is rejected.
*/
func parseTrackerURL(trackerURL string) (host string, port int, err error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return "", 0, fmt.Errorf("tracker: invalid URL %q: %w", trackerURL, err)
	}
	if u.Scheme != "udp" {
		return "", 0, fmt.Errorf("tracker: scheme %q is not udp", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("tracker: URL %q has no host", trackerURL)
	}

	host = u.Hostname()
	port = defaultUDPTrackerPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("tracker: invalid port %q: %w", p, err)
		}
		port = n
	}
	return host, port, nil
}
