package swap

import (
	"strings"

	"sol-swap/pkg/client"
)

// DefaultDenylist holds venues whose routes are never attempted
var DefaultDenylist = []string{"obric"}

// CandidateRoute is one route drawn from a quote, with its position in aggregator order
type CandidateRoute struct {
	Index int
	Route client.Route
	Venue string
}

// Candidates yields the usable routes of a quote in order, primary first.
// It is consumed once and cannot be rewound.
type Candidates struct {
	routes   []client.Route
	denylist []string
	pos      int
	skipped  []CandidateRoute
}

// SelectCandidates prepares the candidate sequence for quote, skipping
// routes whose first-hop venue contains a denylisted name (case-insensitive)
func SelectCandidates(quote *client.Quote, denylist []string) *Candidates {
	lowered := make([]string, 0, len(denylist))
	for _, d := range denylist {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			lowered = append(lowered, d)
		}
	}
	return &Candidates{routes: quote.Routes(), denylist: lowered}
}

// Next returns the next allowed route, or false once the sequence is exhausted
func (c *Candidates) Next() (CandidateRoute, bool) {
	for c.pos < len(c.routes) {
		idx := c.pos
		route := c.routes[idx]
		c.pos++

		cand := CandidateRoute{Index: idx, Route: route, Venue: route.VenueLabel()}
		if c.denied(cand.Venue) {
			c.skipped = append(c.skipped, cand)
			continue
		}
		return cand, true
	}
	return CandidateRoute{}, false
}

// Skipped returns the denylisted routes passed over so far
func (c *Candidates) Skipped() []CandidateRoute {
	return c.skipped
}

// Remaining collects every route not yet consumed
func (c *Candidates) Remaining() []CandidateRoute {
	var out []CandidateRoute
	for {
		cand, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, cand)
	}
}

func (c *Candidates) denied(venue string) bool {
	venue = strings.ToLower(venue)
	for _, d := range c.denylist {
		if strings.Contains(venue, d) {
			return true
		}
	}
	return false
}
