// Package skillgraph keeps skills and their prerequisites as an acyclic graph.
package skillgraph

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/okian/plotpath/internal/domain/skill"
)

type node struct {
	name     string
	category skill.Category
	// prereqs holds direct prerequisite keys, sorted.
	prereqs []string
}

// Graph is safe for concurrent use. Skills are identified case-insensitively
// by their normalized name; every method accepts any spelling of a name.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddSkill inserts s or replaces the prerequisite set of an existing skill.
// Every prerequisite must already exist. On error the graph is unchanged.
func (g *Graph) AddSkill(s skill.Skill) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(s)
}

func (g *Graph) addLocked(s skill.Skill) error {
	name := skill.Normalize(s.Name)
	if name == "" {
		return skill.ErrEmptyName
	}
	key := skill.Key(name)

	seen := make(map[string]struct{}, len(s.Prerequisites))
	prereqs := make([]string, 0, len(s.Prerequisites))
	for _, p := range s.Prerequisites {
		pk := skill.Key(p)
		if pk == "" {
			continue
		}
		if _, dup := seen[pk]; dup {
			continue
		}
		seen[pk] = struct{}{}
		if pk == key {
			return &CycleError{Path: []string{name, name}}
		}
		if _, ok := g.nodes[pk]; !ok {
			return &UnknownSkillError{Skill: skill.Normalize(p)}
		}
		prereqs = append(prereqs, pk)
	}
	sort.Strings(prereqs)

	// A new edge key -> p closes a cycle iff p already reaches key.
	if _, exists := g.nodes[key]; exists {
		for _, pk := range prereqs {
			if path := g.pathLocked(pk, key); path != nil {
				cycle := make([]string, 0, len(path)+1)
				cycle = append(cycle, name)
				for _, k := range path {
					cycle = append(cycle, g.nodes[k].name)
				}
				return &CycleError{Path: cycle}
			}
		}
	}

	g.nodes[key] = &node{name: name, category: s.Category, prereqs: prereqs}
	return nil
}

// pathLocked returns the keys on a prerequisite path from -> ... -> to, or nil.
func (g *Graph) pathLocked(from, to string) []string {
	visited := make(map[string]bool)
	var walk func(k string) []string
	walk = func(k string) []string {
		if k == to {
			return []string{k}
		}
		if visited[k] {
			return nil
		}
		visited[k] = true
		for _, p := range g.nodes[k].prereqs {
			if rest := walk(p); rest != nil {
				return append([]string{k}, rest...)
			}
		}
		return nil
	}
	return walk(from)
}

// Load adds skills in dependency order regardless of input order.
// Either every skill is added or, on error, none is.
func (g *Graph) Load(skills []skill.Skill) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	work := g.cloneLocked()
	pending := make([]skill.Skill, len(skills))
	copy(pending, skills)

	for len(pending) > 0 {
		var next []skill.Skill
		for _, s := range pending {
			if !work.prereqsPresent(s) {
				next = append(next, s)
				continue
			}
			if err := work.addLocked(s); err != nil {
				return err
			}
		}
		if len(next) == len(pending) {
			return work.explainStuck(next)
		}
		pending = next
	}

	g.nodes = work.nodes
	return nil
}

func (g *Graph) prereqsPresent(s skill.Skill) bool {
	for _, p := range s.Prerequisites {
		pk := skill.Key(p)
		if pk == "" || pk == skill.Key(s.Name) {
			continue
		}
		if _, ok := g.nodes[pk]; !ok {
			return false
		}
	}
	return true
}

// explainStuck reports why none of the remaining skills could be added:
// either a prerequisite is missing from the batch entirely or they form a cycle.
func (g *Graph) explainStuck(stuck []skill.Skill) error {
	inBatch := make(map[string]skill.Skill, len(stuck))
	for _, s := range stuck {
		inBatch[skill.Key(s.Name)] = s
	}
	for _, s := range stuck {
		for _, p := range s.Prerequisites {
			pk := skill.Key(p)
			if pk == "" {
				continue
			}
			if _, ok := g.nodes[pk]; ok {
				continue
			}
			if _, ok := inBatch[pk]; !ok {
				return &UnknownSkillError{Skill: skill.Normalize(p)}
			}
		}
	}
	// Every blocker is inside the batch, so following any chain must revisit a skill.
	start := skill.Key(stuck[0].Name)
	var path []string
	pos := make(map[string]int)
	for k := start; ; {
		if i, ok := pos[k]; ok {
			cycle := append(path[i:], inBatch[k].Name)
			for j := range cycle {
				cycle[j] = skill.Normalize(cycle[j])
			}
			return &CycleError{Path: cycle}
		}
		pos[k] = len(path)
		path = append(path, inBatch[k].Name)
		for _, p := range inBatch[k].Prerequisites {
			pk := skill.Key(p)
			if _, ok := inBatch[pk]; ok {
				k = pk
				break
			}
		}
	}
}

func (g *Graph) cloneLocked() *Graph {
	c := &Graph{nodes: make(map[string]*node, len(g.nodes))}
	for k, n := range g.nodes {
		c.nodes[k] = n
	}
	return c
}

// Has reports whether name is in the graph.
func (g *Graph) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[skill.Key(name)]
	return ok
}

// Skill returns the stored skill with canonical names.
func (g *Graph) Skill(name string) (skill.Skill, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[skill.Key(name)]
	if !ok {
		return skill.Skill{}, false
	}
	s := skill.Skill{Name: n.name, Category: n.category, Prerequisites: make([]string, len(n.prereqs))}
	for i, p := range n.prereqs {
		s.Prerequisites[i] = g.nodes[p].name
	}
	return s, true
}

// Names returns every skill name in ascending order.
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of skills.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// closureLocked returns every transitive prerequisite key of key.
func (g *Graph) closureLocked(key string) map[string]struct{} {
	out := make(map[string]struct{})
	stack := append([]string(nil), g.nodes[key].prereqs...)
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := out[k]; ok {
			continue
		}
		out[k] = struct{}{}
		stack = append(stack, g.nodes[k].prereqs...)
	}
	return out
}

// PrerequisitesOf returns the transitive prerequisites of name, sorted.
func (g *Graph) PrerequisitesOf(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	key := skill.Key(name)
	if _, ok := g.nodes[key]; !ok {
		return nil, &UnknownSkillError{Skill: skill.Normalize(name)}
	}
	closure := g.closureLocked(key)
	out := make([]string, 0, len(closure))
	for k := range closure {
		out = append(out, g.nodes[k].name)
	}
	sort.Strings(out)
	return out, nil
}

// subsetLocked resolves names to unique keys.
func (g *Graph) subsetLocked(names []string) ([]string, error) {
	keys := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		k := skill.Key(n)
		if _, ok := g.nodes[k]; !ok {
			return nil, &UnknownSkillError{Skill: skill.Normalize(n)}
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, nil
}

// inducedLocked maps each subset key to its transitive prerequisites inside the subset.
func (g *Graph) inducedLocked(keys []string) map[string][]string {
	in := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		in[k] = struct{}{}
	}
	deps := make(map[string][]string, len(keys))
	for _, k := range keys {
		deps[k] = nil
		for p := range g.closureLocked(k) {
			if _, ok := in[p]; ok {
				deps[k] = append(deps[k], p)
			}
		}
	}
	return deps
}

// TopologicalOrder orders names so every skill follows its prerequisites,
// considering only prerequisite relations among the given names (transitively,
// through skills outside the set). Ties go to the smallest name.
func (g *Graph) TopologicalOrder(names []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys, err := g.subsetLocked(names)
	if err != nil {
		return nil, err
	}
	order, err := g.kahnLocked(keys)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(order))
	for i, k := range order {
		out[i] = g.nodes[k].name
	}
	return out, nil
}

func (g *Graph) kahnLocked(keys []string) ([]string, error) {
	deps := g.inducedLocked(keys)
	indegree := make(map[string]int, len(keys))
	dependents := make(map[string][]string, len(keys))
	for k, ps := range deps {
		indegree[k] = len(ps)
		for _, p := range ps {
			dependents[p] = append(dependents[p], k)
		}
	}

	ready := &nameHeap{nodes: g.nodes}
	for _, k := range keys {
		if indegree[k] == 0 {
			heap.Push(ready, k)
		}
	}
	order := make([]string, 0, len(keys))
	for ready.Len() > 0 {
		k := heap.Pop(ready).(string)
		order = append(order, k)
		for _, d := range dependents[k] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}
	if len(order) != len(keys) {
		// Unreachable while AddSkill keeps the graph acyclic.
		var left []string
		for _, k := range keys {
			if indegree[k] > 0 {
				left = append(left, g.nodes[k].name)
			}
		}
		sort.Strings(left)
		return nil, &CycleError{Path: left}
	}
	return order, nil
}

// Depths returns, for each name, the length of the longest prerequisite chain
// that stays inside the given set. Skills with no prerequisite in the set have depth 0.
func (g *Graph) Depths(names []string) (map[string]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys, err := g.subsetLocked(names)
	if err != nil {
		return nil, err
	}
	order, err := g.kahnLocked(keys)
	if err != nil {
		return nil, err
	}
	deps := g.inducedLocked(keys)
	depth := make(map[string]int, len(order))
	out := make(map[string]int, len(order))
	for _, k := range order {
		d := 0
		for _, p := range deps[k] {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[k] = d
		out[g.nodes[k].name] = d
	}
	return out, nil
}

// Dependents returns the skills in within that transitively require name, sorted.
func (g *Graph) Dependents(name string, within []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	key := skill.Key(name)
	if _, ok := g.nodes[key]; !ok {
		return nil, &UnknownSkillError{Skill: skill.Normalize(name)}
	}
	keys, err := g.subsetLocked(within)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if k == key {
			continue
		}
		if _, ok := g.closureLocked(k)[key]; ok {
			out = append(out, g.nodes[k].name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// nameHeap is a min-heap of keys ordered by display name.
type nameHeap struct {
	keys  []string
	nodes map[string]*node
}

func (h *nameHeap) Len() int { return len(h.keys) }
func (h *nameHeap) Less(i, j int) bool {
	a, b := h.nodes[h.keys[i]].name, h.nodes[h.keys[j]].name
	if a != b {
		return a < b
	}
	return h.keys[i] < h.keys[j]
}
func (h *nameHeap) Swap(i, j int) { h.keys[i], h.keys[j] = h.keys[j], h.keys[i] }
func (h *nameHeap) Push(x any)   { h.keys = append(h.keys, x.(string)) }
func (h *nameHeap) Pop() any {
	old := h.keys
	n := len(old)
	x := old[n-1]
	h.keys = old[:n-1]
	return x
}
