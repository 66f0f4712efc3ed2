package shell

import (
	"sync"

	"github.com/editorialdesk/console/menu"
)

// SidebarItem is one rendered navigation entry. Topic groups carry children
// and an expansion flag; plain pages carry neither.
type SidebarItem struct {
	Path     string        `json:"path"`
	Name     string        `json:"name"`
	Icon     string        `json:"icon,omitempty"`
	IsTopic  bool          `json:"isTopic,omitempty"`
	Expanded bool          `json:"expanded,omitempty"`
	Children []SidebarItem `json:"children,omitempty"`
}

// Sidebar is the accordion model over the compiled tree. At most one topic
// group is expanded at a time; expanding one collapses the rest.
type Sidebar struct {
	mu    sync.Mutex
	items []SidebarItem
}

// NewSidebar builds a collapsed sidebar from a compiled tree.
func NewSidebar(tree []menu.CompiledRoute) *Sidebar {
	items := make([]SidebarItem, len(tree))
	for i, route := range tree {
		items[i] = SidebarItem{
			Path:    route.Path,
			Name:    route.Name,
			Icon:    route.Icon,
			IsTopic: route.IsTopic,
		}
		for _, child := range route.Children {
			items[i].Children = append(items[i].Children, SidebarItem{
				Path: route.Path + "/" + child.Path,
				Name: child.Name,
			})
		}
	}
	return &Sidebar{items: items}
}

// Items returns a snapshot of the current model.
func (s *Sidebar) Items() []SidebarItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SidebarItem, len(s.items))
	copy(out, s.items)
	return out
}

// Toggle flips the expansion of the topic group at path. Expanding a group
// collapses every other one; toggling an already-expanded group collapses it.
// Unknown or non-topic paths leave the model untouched.
func (s *Sidebar) Toggle(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if !s.items[i].IsTopic {
			continue
		}
		if s.items[i].Path == path {
			s.items[i].Expanded = !s.items[i].Expanded
		} else {
			s.items[i].Expanded = false
		}
	}
}

// ExpandedCount reports how many topic groups are currently expanded.
func (s *Sidebar) ExpandedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		if item.Expanded {
			count++
		}
	}
	return count
}
