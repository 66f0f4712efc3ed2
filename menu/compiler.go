package menu

import (
	"net/http"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
)

var numericID = regexp.MustCompile(`^\d+$`)

// Fixed sub-views every topic entry carries, regardless of the topic's own
// name: the actuality pool and the follow view.
const (
	TopicPoolID   = "pool"
	TopicFollowID = "follow"

	topicPoolName   = "Actualité"
	topicFollowName = "Follow my news"
)

// CompiledRoute is one node of the served navigation tree. View is nil when
// the identifier resolved to no registered view; the entry stays listed but
// is inert.
type CompiledRoute struct {
	Path     string
	Name     string
	Icon     string
	IsTopic  bool
	View     http.Handler
	Children []CompiledRoute
}

// Compiler turns descriptors into route trees. The current tree is replaced
// wholesale on every compilation; consumers never observe a partial tree.
type Compiler struct {
	registry *Registry
	log      zerolog.Logger

	mu   sync.RWMutex
	tree []CompiledRoute
}

// NewCompiler builds a compiler over the given view registry.
func NewCompiler(registry *Registry, log zerolog.Logger) *Compiler {
	return &Compiler{
		registry: registry,
		log:      log.With().Str("component", "menu").Logger(),
	}
}

// Tree returns the last published tree, or nil before the first compilation.
func (c *Compiler) Tree() []CompiledRoute {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}

// Compile resolves every entry of the descriptor and publishes the finished
// tree in one atomic swap. Individual view constructions run concurrently;
// the call returns only once all of them finished, so callers see either the
// previous tree or the complete new one, never something in between.
func (c *Compiler) Compile(d Descriptor) ([]CompiledRoute, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	routes := make([]CompiledRoute, d.Len())
	var wg sync.WaitGroup

	for i, page := range d.Pages {
		wg.Add(1)
		go func(i int, page Entry) {
			defer wg.Done()
			routes[i] = CompiledRoute{
				Path: PathName(page.ID),
				Name: page.Name,
				Icon: Icon(page.Name),
				View: c.resolvePage(page.ID),
			}
		}(i, page)
	}

	poolView := c.resolveTopicView(TopicPoolID)
	followView := c.resolveTopicView(TopicFollowID)
	for i, topic := range d.Topics {
		routes[len(d.Pages)+i] = CompiledRoute{
			Path:    PathName(topic.ID),
			Name:    topic.Name,
			Icon:    Icon(topic.Name),
			IsTopic: true,
			Children: []CompiledRoute{
				{Path: TopicPoolID, Name: topicPoolName, View: poolView},
				{Path: TopicFollowID, Name: topicFollowName, View: followView},
			},
		}
	}

	wg.Wait()

	c.mu.Lock()
	c.tree = routes
	c.mu.Unlock()
	return routes, nil
}

// resolvePage maps a page identifier to its constructed view. Numeric-only
// identifiers are malformed descriptor entries and never reach the registry.
func (c *Compiler) resolvePage(id string) http.Handler {
	if numericID.MatchString(id) {
		return nil
	}
	ctor, ok := c.registry.ResolvePage(id)
	if !ok {
		c.log.Error().Str("id", id).Msg("no registered view for menu entry")
		return nil
	}
	return ctor()
}

func (c *Compiler) resolveTopicView(name string) http.Handler {
	ctor, ok := c.registry.ResolveTopicView(name)
	if !ok {
		c.log.Error().Str("view", name).Msg("missing fixed topic view")
		return nil
	}
	return ctor()
}

// Landing resolves the designated landing route: the first entry of the
// tree, descending into a topic's first child. ok is false while the tree is
// empty, in which case the shell renders the loading placeholder.
func Landing(tree []CompiledRoute) (path string, ok bool) {
	if len(tree) == 0 {
		return "", false
	}
	first := tree[0]
	if !first.IsTopic {
		return first.Path, true
	}
	if len(first.Children) == 0 {
		return "", false
	}
	return first.Path + "/" + first.Children[0].Path, true
}
