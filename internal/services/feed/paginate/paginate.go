// Package paginate owns the page cache of one feed session
//
// Pages are handed out in strict index order and stored by index, so a
// later page never renders before an earlier one arrives
package paginate

import (
	"slices"

	"feedweave/internal/core/activity"
)

// Options bounds paging
type Options struct {
	PageSize    int
	MaxInFlight int
}

// Request is one page fetch handed to the caller
type Request struct {
	Index  int
	Offset int
	Limit  int
	Gen    uint64
	Filter string
}

// Page is a completed fetch
// Received is the raw record count before normalization, zero ends the feed
type Page struct {
	Items         []activity.Activity
	Received      int
	CurrentUserID string
}

// Result tells the caller what Complete did
type Result struct {
	Stale bool // generation or filter moved on, the page was discarded
	Empty bool // terminal page
	First bool // first page of this generation to be stored
	Added int
}

// Paginator is not safe for concurrent use, the owning session serializes calls
type Paginator struct {
	opt         Options
	gen         uint64
	filter      string
	pages       map[int][]activity.Activity
	next        int
	retry       []int
	inflight    map[int]bool
	exhausted   bool
	end         int
	stored      bool
	highlight   *activity.Activity
	currentUser string
}

// New returns an empty paginator
func New(opt Options) *Paginator {
	if opt.PageSize <= 0 {
		opt.PageSize = 15
	}
	if opt.MaxInFlight <= 0 {
		opt.MaxInFlight = 1
	}
	return &Paginator{opt: opt, pages: map[int][]activity.Activity{}, inflight: map[int]bool{}}
}

// Reset starts a new generation for filter, dropping pages and in-flight requests
// The highlight survives a reset
func (p *Paginator) Reset(filter string) {
	p.gen++
	p.filter = filter
	p.pages = map[int][]activity.Activity{}
	p.next = 0
	p.retry = nil
	p.inflight = map[int]bool{}
	p.exhausted = false
	p.end = 0
	p.stored = false
}

// Begin hands out the next page index
// Failed indices come first, an exhausted feed still hands out failed indices below its end
// It returns false once nothing is left to fetch or MaxInFlight requests are out
func (p *Paginator) Begin() (Request, bool) {
	if len(p.inflight) >= p.opt.MaxInFlight {
		return Request{}, false
	}
	idx := p.next
	switch {
	case len(p.retry) > 0:
		idx, p.retry = p.retry[0], p.retry[1:]
	case p.exhausted:
		return Request{}, false
	default:
		p.next++
	}
	p.inflight[idx] = true
	return Request{
		Index:  idx,
		Offset: idx * p.opt.PageSize,
		Limit:  p.opt.PageSize,
		Gen:    p.gen,
		Filter: p.filter,
	}, true
}

// Complete stores the page for req
// A failed fetch frees its index for the next Begin
func (p *Paginator) Complete(req Request, page Page, err error) Result {
	if req.Gen != p.gen || req.Filter != p.filter {
		return Result{Stale: true}
	}
	delete(p.inflight, req.Index)
	if p.exhausted && req.Index > p.end {
		return Result{Stale: true}
	}
	if err != nil {
		p.retry = append(p.retry, req.Index)
		slices.Sort(p.retry)
		return Result{}
	}
	if page.CurrentUserID != "" {
		p.currentUser = page.CurrentUserID
	}
	if page.Received == 0 && len(page.Items) == 0 {
		p.exhausted = true
		p.end = req.Index
		p.retry = slices.DeleteFunc(p.retry, func(i int) bool { return i > req.Index })
		for i := range p.pages {
			if i > req.Index {
				delete(p.pages, i)
			}
		}
		return Result{Empty: true}
	}
	first := !p.stored
	p.stored = true
	p.pages[req.Index] = slices.Clone(page.Items)
	return Result{First: first, Added: len(page.Items)}
}

// Exhausted reports whether an empty page ended the feed and every page before it is stored
func (p *Paginator) Exhausted() bool {
	if !p.exhausted || len(p.retry) > 0 {
		return false
	}
	for i := range p.inflight {
		if i < p.end {
			return false
		}
	}
	return true
}

// InFlight counts outstanding requests
func (p *Paginator) InFlight() int { return len(p.inflight) }

// Filter returns the active filter
func (p *Paginator) Filter() string { return p.filter }

// Generation returns the active generation
func (p *Paginator) Generation() uint64 { return p.gen }

// CurrentUserID is the viewer id the upstream reported
func (p *Paginator) CurrentUserID() string { return p.currentUser }

// SetHighlight pins one deep-linked activity, nil clears it
func (p *Paginator) SetHighlight(a *activity.Activity) {
	if a == nil {
		p.highlight = nil
		return
	}
	cp := a.Clone()
	p.highlight = &cp
}

// Highlight returns the pinned activity
func (p *Paginator) Highlight() *activity.Activity { return p.highlight }

// Contiguous counts the pages stored from index 0 without a gap
func (p *Paginator) Contiguous() int {
	n := 0
	for {
		if _, ok := p.pages[n]; !ok {
			return n
		}
		n++
	}
}

// Items merges the contiguous prefix of pages
// A repeated id keeps its first position and identity and takes the last-seen engagement
func (p *Paginator) Items() []activity.Activity {
	var out []activity.Activity
	pos := map[string]int{}
	for i := 0; i < p.Contiguous(); i++ {
		for _, a := range p.pages[i] {
			if j, ok := pos[a.ID]; ok {
				out[j].Engagement = a.Engagement
				continue
			}
			pos[a.ID] = len(out)
			out = append(out, a.Clone())
		}
	}
	return out
}

// Find returns the stored activity with id from any page, or the highlight
func (p *Paginator) Find(id string) (activity.Activity, bool) {
	keys := make([]int, 0, len(p.pages))
	for k := range p.pages {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, a := range p.pages[k] {
			if a.ID == id {
				return a, true
			}
		}
	}
	if p.highlight != nil && p.highlight.ID == id {
		return *p.highlight, true
	}
	return activity.Activity{}, false
}

// HighlightPage is the page index under which Pages exposes the highlight
const HighlightPage = -1

// Pages returns a copy of the page cache, the highlight sits at HighlightPage
func (p *Paginator) Pages() map[int][]activity.Activity {
	out := make(map[int][]activity.Activity, len(p.pages)+1)
	for k, v := range p.pages {
		out[k] = slices.Clone(v)
	}
	if p.highlight != nil {
		out[HighlightPage] = []activity.Activity{p.highlight.Clone()}
	}
	return out
}

// Patch writes mutated copies back, indices the cache does not hold are ignored
// An emptied HighlightPage clears the highlight
func (p *Paginator) Patch(pages map[int][]activity.Activity) {
	for k := range p.pages {
		if v, ok := pages[k]; ok {
			p.pages[k] = slices.Clone(v)
		}
	}
	if v, ok := pages[HighlightPage]; ok {
		if len(v) == 0 {
			p.highlight = nil
		} else {
			h := v[0].Clone()
			p.highlight = &h
		}
	}
}
