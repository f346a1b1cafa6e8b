// Package mem is an in-memory tagging provider: deterministic paging,
// scriptable failures, and a mutation log. It backs the engine tests
// and the provider conformance suite.
package mem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/provider"
)

// Mutation records one mutating call for later inspection.
type Mutation struct {
	ID        string
	Tags      ir.TagMap
	Mode      ir.Mode
	DeleteAll bool
}

// Provider is a fully in-memory TaggingProvider.
type Provider struct {
	mu       sync.Mutex
	kind     ir.Kind
	pageSize int

	resources   []ir.Resource
	tags        map[string]ir.TagMap
	unsupported map[string]bool

	listErrs []error
	getErrs  map[string][]error
	setErrs  map[string][]error

	listCalls int
	mutations []Mutation
}

func New(kind ir.Kind) *Provider {
	return &Provider{
		kind:        kind,
		pageSize:    2,
		tags:        make(map[string]ir.TagMap),
		unsupported: make(map[string]bool),
		getErrs:     make(map[string][]error),
		setErrs:     make(map[string][]error),
	}
}

// AddResource seeds a resource with initial tags and returns it.
func (p *Provider) AddResource(name string, tags ir.TagMap) ir.Resource {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := ir.Resource{
		ID:               fmt.Sprintf("mem:%s:%s", p.kind, name),
		Name:             name,
		Kind:             p.kind,
		TaggingSupported: true,
	}
	p.resources = append(p.resources, res)
	p.tags[res.ID] = tags.Clone()
	return res
}

// MarkUnsupported makes GetTags report the unsupported terminal state
// for a resource.
func (p *Provider) MarkUnsupported(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unsupported[id] = true
}

// SetPageSize controls how many resources each listing page carries.
func (p *Provider) SetPageSize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageSize = n
}

// FailNextList queues errors returned by the next ListResources calls,
// in order, before listing succeeds again.
func (p *Provider) FailNextList(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listErrs = append(p.listErrs, errs...)
}

// FailGet queues errors for GetTags on one resource.
func (p *Provider) FailGet(id string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getErrs[id] = append(p.getErrs[id], errs...)
}

// FailSet queues errors for SetTags/DeleteAllTags on one resource.
func (p *Provider) FailSet(id string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setErrs[id] = append(p.setErrs[id], errs...)
}

// Tags returns a copy of the stored tags for a resource.
func (p *Provider) Tags(id string) ir.TagMap {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tags[id].Clone()
}

// Mutations returns every mutating call seen so far.
func (p *Provider) Mutations() []Mutation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Mutation, len(p.mutations))
	copy(out, p.mutations)
	return out
}

// ListCalls returns how many listing calls were made, including failed
// ones.
func (p *Provider) ListCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listCalls
}

func (p *Provider) Kind() ir.Kind { return p.kind }

func (p *Provider) ListResources(_ context.Context, cursor string) (*provider.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listCalls++
	if len(p.listErrs) > 0 {
		err := p.listErrs[0]
		p.listErrs = p.listErrs[1:]
		return nil, err
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q: %w", cursor, err)
		}
		start = n
	}

	end := start + p.pageSize
	if end > len(p.resources) {
		end = len(p.resources)
	}

	page := &provider.Page{
		Resources: append([]ir.Resource(nil), p.resources[start:end]...),
	}
	if end < len(p.resources) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (p *Provider) GetTags(_ context.Context, id string) (ir.TagMap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if errs := p.getErrs[id]; len(errs) > 0 {
		err := errs[0]
		p.getErrs[id] = errs[1:]
		return nil, err
	}
	if p.unsupported[id] {
		return nil, provider.NewError(provider.KindUnsupported, "get tags", id, errors.New("tagging not applicable"))
	}
	if _, ok := p.tags[id]; !ok {
		return nil, provider.NewError(provider.KindNotFound, "get tags", id, errors.New("no such resource"))
	}
	return p.tags[id].Clone(), nil
}

func (p *Provider) SetTags(_ context.Context, id string, tags ir.TagMap, mode ir.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if errs := p.setErrs[id]; len(errs) > 0 {
		err := errs[0]
		p.setErrs[id] = errs[1:]
		return err
	}
	if _, ok := p.tags[id]; !ok {
		return provider.NewError(provider.KindNotFound, "set tags", id, errors.New("no such resource"))
	}

	p.mutations = append(p.mutations, Mutation{ID: id, Tags: tags.Clone(), Mode: mode})
	if mode == ir.ModeReplace {
		p.tags[id] = tags.Clone()
	} else {
		p.tags[id] = p.tags[id].Merged(tags)
	}
	return nil
}

func (p *Provider) DeleteAllTags(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if errs := p.setErrs[id]; len(errs) > 0 {
		err := errs[0]
		p.setErrs[id] = errs[1:]
		return err
	}
	if _, ok := p.tags[id]; !ok {
		return provider.NewError(provider.KindNotFound, "delete tags", id, errors.New("no such resource"))
	}

	p.mutations = append(p.mutations, Mutation{ID: id, DeleteAll: true})
	p.tags[id] = ir.TagMap{}
	return nil
}
