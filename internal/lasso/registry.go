package lasso

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownRegion = errors.New("unknown lasso region")

// RegionID is an opaque handle to a Region.
type RegionID string

func ParseRegionID(s string) (RegionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", ErrUnknownRegion
	}
	return RegionID(id.String()), nil
}

// ============================================================
// Registry
// ============================================================

// Registry owns every open Region. A region is opened when its question
// becomes visible and disposed when the question or its session goes away.
type Registry struct {
	mu      sync.Mutex
	regions map[RegionID]*Region
	opts    Options
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		regions: make(map[RegionID]*Region),
		opts:    opts,
	}
}

// Open creates a fresh region for owner on a surface of width × height.
// An earlier region of the same owner and chart index is disposed, so an
// owner holds at most one region per chart.
func (g *Registry) Open(owner string, chartIndex int, width, height float64) (*Region, error) {
	if err := checkSurface(width, height); err != nil {
		return nil, err
	}

	id := RegionID(uuid.NewString())
	r := newRegion(id, owner, chartIndex, width, height, g.opts)

	g.mu.Lock()
	defer g.mu.Unlock()
	for old, existing := range g.regions {
		if existing.owner == owner && existing.chartIndex == chartIndex {
			delete(g.regions, old)
		}
	}
	g.regions[id] = r
	return r, nil
}

func (g *Registry) Get(id RegionID) (*Region, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.regions[id]
	if !ok {
		return nil, ErrUnknownRegion
	}
	return r, nil
}

// Dispose forgets the region. Disposing an unknown id is a no-op.
func (g *Registry) Dispose(id RegionID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.regions, id)
}

// DisposeOwner forgets every region of owner and returns how many went away.
func (g *Registry) DisposeOwner(owner string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for id, r := range g.regions {
		if r.owner == owner {
			delete(g.regions, id)
			n++
		}
	}
	return n
}

// Owned lists the regions of owner by chart index.
func (g *Registry) Owned(owner string) []*Region {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []*Region
	for _, r := range g.regions {
		if r.owner == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].chartIndex < out[j].chartIndex })
	return out
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.regions)
}
