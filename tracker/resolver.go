package tracker

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// maxConcurrentLookups bounds how many hostname resolutions run at once, independent of how many
// sessions are simultaneously in the Resolving state.
const maxConcurrentLookups = 8

// --------------------------------------------------------------------------------------------- //

/*
stdResolver implements Resolver over net.DefaultResolver. Concurrent lookups are bounded by an
errgroup used purely as a limiter (its Go method blocks once maxConcurrentLookups are in flight;
Wait is never called since the group lives for the process lifetime), and duplicate concurrent
lookups for the same hostname — two sessions whose URLs share a host — are collapsed with
singleflight.
*/
type stdResolver struct {
	limiter *errgroup.Group
	sf      singleflight.Group
}

func newStdResolver() *stdResolver {
	g := &errgroup.Group{}
	g.SetLimit(maxConcurrentLookups)
	return &stdResolver{limiter: g}
}

func (r *stdResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	type result struct {
		ip  net.IP
		err error
	}
	ch := make(chan result, 1)

	r.limiter.Go(func() error {
		v, err, _ := r.sf.Do(hostname, func() (interface{}, error) {
			ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", hostname)
			if err != nil {
				return nil, err
			}
			if len(ips) == 0 {
				return nil, fmt.Errorf("tracker: no addresses for %s", hostname)
			}
			return ips[0], nil
		})
		if err != nil {
			ch <- result{err: err}
			return nil
		}
		ch <- result{ip: v.(net.IP)}
		return nil
	})

	select {
	case res := <-ch:
		return res.ip, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
