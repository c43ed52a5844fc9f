// Package usecase holds the annotation core: the hit filter, the greedy
// overlap resolver, and the chunked parallel pipeline that drives them.
package usecase

import (
	"math"
	"sort"

	"github.com/AndreLecona/Dotate/internal/domain"
)

// Thresholds are the per-hit acceptance cutoffs. Boundary values pass: a hit
// is kept when IEvalue <= MaxIEvalue, HMMCov >= MinHMMCov and
// DomainCov >= MinDomainCov.
type Thresholds struct {
	MaxIEvalue   float64
	MinHMMCov    float64
	MinDomainCov float64
}

// DefaultThresholds keeps everything: +Inf i-Evalue ceiling, zero coverage
// floors. The CLI applies its own stricter defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxIEvalue: math.Inf(1)}
}

// Keep reports whether the hit survives all three cutoffs.
func (t Thresholds) Keep(h domain.Hit) bool {
	return h.IEvalue <= t.MaxIEvalue &&
		h.HMMCov >= t.MinHMMCov &&
		h.DomainCov >= t.MinDomainCov
}

// ResolveOptions tune the overlap resolver.
type ResolveOptions struct {
	// OverlapTolerance is the accepted fraction of a candidate's span that may
	// overlap already-accepted domains. 0 means any positional overlap rejects.
	OverlapTolerance float64
	// MinUnannotated is the minimum length for a gap between accepted domains
	// to be reported as an unannotated segment.
	MinUnannotated int
}

// Resolve reduces one protein's hits to a non-redundant annotation: filter by
// thresholds, rank candidates, greedily accept non-overlapping spans, then
// fill in the unannotated segments. A protein with no surviving hit yields a
// single full-length unannotated segment.
func Resolve(g domain.Group, t Thresholds, opts ResolveOptions) domain.ProteinAnnotation {
	pa := domain.ProteinAnnotation{Protein: g.Protein, Length: g.Length}

	candidates := make([]domain.Hit, 0, len(g.Hits))
	for _, h := range g.Hits {
		if t.Keep(h) {
			candidates = append(candidates, h)
		}
	}
	rankCandidates(candidates)

	accepted := make([]domain.Hit, 0, len(candidates))
	for _, cand := range candidates {
		if fitsAccepted(cand, accepted, opts.OverlapTolerance) {
			accepted = append(accepted, cand)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].EnvFrom < accepted[j].EnvFrom
	})

	pa.Domains = make([]domain.Annotation, len(accepted))
	for i := range accepted {
		h := &accepted[i]
		pa.Domains[i] = domain.Annotation{
			Protein:   h.Protein,
			Domain:    h.Domain,
			Start:     h.EnvFrom,
			End:       h.EnvTo,
			IEvalue:   h.IEvalue,
			HMMCov:    h.HMMCov,
			DomainCov: h.DomainCov,
			Hit:       h,
		}
	}
	pa.Unannotated = gaps(pa.Domains, g.Length, opts.MinUnannotated)
	return pa
}

// rankCandidates orders hits best-first: i-Evalue ascending, then domain
// coverage descending, then envelope start and domain name to make the order
// total and deterministic.
func rankCandidates(hits []domain.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.IEvalue != b.IEvalue {
			return a.IEvalue < b.IEvalue
		}
		if a.DomainCov != b.DomainCov {
			return a.DomainCov > b.DomainCov
		}
		if a.EnvFrom != b.EnvFrom {
			return a.EnvFrom < b.EnvFrom
		}
		return a.Domain < b.Domain
	})
}

// fitsAccepted reports whether cand overlaps every accepted span by at most
// tolerance, measured as a fraction of cand's own length.
func fitsAccepted(cand domain.Hit, accepted []domain.Hit, tolerance float64) bool {
	candLen := cand.EnvLen()
	for _, a := range accepted {
		o := overlap(cand.EnvFrom, cand.EnvTo, a.EnvFrom, a.EnvTo)
		if float64(o)/float64(candLen) > tolerance {
			return false
		}
	}
	return true
}

// overlap returns the number of residues shared by [aFrom,aTo] and
// [bFrom,bTo], both inclusive.
func overlap(aFrom, aTo, bFrom, bTo int) int {
	from := max(aFrom, bFrom)
	to := min(aTo, bTo)
	if to < from {
		return 0
	}
	return to - from + 1
}

// gaps lists the unannotated runs around the accepted domains (which must be
// sorted by start). Runs shorter than minLen are dropped, except that a
// protein without any domain always reports its full length.
func gaps(domains []domain.Annotation, length, minLen int) []domain.Segment {
	if len(domains) == 0 {
		return []domain.Segment{{Start: 1, End: length}}
	}

	var segs []domain.Segment
	add := func(start, end int) {
		if start > end {
			return
		}
		if end-start+1 >= minLen {
			segs = append(segs, domain.Segment{Start: start, End: end})
		}
	}

	add(1, domains[0].Start-1)
	for i := 1; i < len(domains); i++ {
		add(domains[i-1].End+1, domains[i].Start-1)
	}
	add(domains[len(domains)-1].End+1, length)
	return segs
}
