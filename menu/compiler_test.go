package menu_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	apperrors "github.com/editorialdesk/console/internal/errors"
	"github.com/editorialdesk/console/menu"
)

func nopHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

func newTestRegistry() *menu.Registry {
	reg := menu.NewRegistry()
	for _, name := range []string{"Articles", "Roles", "Users", "Tags"} {
		reg.RegisterPage(name, nopHandler)
	}
	reg.RegisterTopicView(menu.TopicPoolID, nopHandler)
	reg.RegisterTopicView(menu.TopicFollowID, nopHandler)
	return reg
}

func TestCompileShape(t *testing.T) {
	c := menu.NewCompiler(newTestRegistry(), zerolog.Nop())

	d := menu.Descriptor{
		Pages: []menu.Entry{
			{ID: "articles", Name: "articles"},
			{ID: "roles", Name: "rôles"},
		},
		Topics: []menu.Entry{
			{ID: "economie", Name: "Économie"},
			{ID: "sport", Name: "Sport"},
		},
	}

	tree, err := c.Compile(d)
	require.NoError(t, err)

	// One top-level route per descriptor entry.
	require.Len(t, tree, d.Len())

	require.False(t, tree[0].IsTopic)
	require.Equal(t, "articles", tree[0].Path)
	require.NotNil(t, tree[0].View)

	// Every topic carries exactly the fixed pool/follow pair, regardless of
	// the topic's own name.
	for _, topic := range tree[2:] {
		require.True(t, topic.IsTopic)
		require.Nil(t, topic.View)
		require.Len(t, topic.Children, 2)
		require.Equal(t, "pool", topic.Children[0].Path)
		require.Equal(t, "follow", topic.Children[1].Path)
		require.NotNil(t, topic.Children[0].View)
		require.NotNil(t, topic.Children[1].View)
	}
}

func TestCompileUnresolvedViewStaysListed(t *testing.T) {
	c := menu.NewCompiler(newTestRegistry(), zerolog.Nop())

	tree, err := c.Compile(menu.Descriptor{
		Pages: []menu.Entry{
			{ID: "bannieres", Name: "bannieres"}, // no registered view
			{ID: "articles", Name: "articles"},
		},
	})
	require.NoError(t, err)
	require.Len(t, tree, 2)
	require.Nil(t, tree[0].View, "unresolved entry is listed but inert")
	require.NotNil(t, tree[1].View)
}

func TestCompileNumericIdentifierYieldsNilView(t *testing.T) {
	reg := newTestRegistry()
	resolved := false
	reg.RegisterPage("42", func() http.Handler {
		resolved = true
		return nopHandler()
	})

	c := menu.NewCompiler(reg, zerolog.Nop())
	tree, err := c.Compile(menu.Descriptor{Pages: []menu.Entry{{ID: "42", Name: "42"}}})
	require.NoError(t, err)
	require.Nil(t, tree[0].View)
	require.False(t, resolved, "numeric identifiers must not attempt resolution")
}

func TestCompileRejectsDuplicateIdentifiers(t *testing.T) {
	c := menu.NewCompiler(newTestRegistry(), zerolog.Nop())
	_, err := c.Compile(menu.Descriptor{
		Pages:  []menu.Entry{{ID: "articles", Name: "articles"}},
		Topics: []menu.Entry{{ID: "articles", Name: "Articles"}},
	})
	require.ErrorIs(t, err, apperrors.ErrDuplicateMenuEntry)
}

func TestLanding(t *testing.T) {
	c := menu.NewCompiler(newTestRegistry(), zerolog.Nop())

	t.Run("direct page first", func(t *testing.T) {
		tree, err := c.Compile(menu.Descriptor{
			Pages:  []menu.Entry{{ID: "articles", Name: "articles"}},
			Topics: []menu.Entry{{ID: "sport", Name: "Sport"}},
		})
		require.NoError(t, err)
		path, ok := menu.Landing(tree)
		require.True(t, ok)
		require.Equal(t, "articles", path)
	})

	t.Run("topic first descends to its first child", func(t *testing.T) {
		tree, err := c.Compile(menu.Descriptor{
			Topics: []menu.Entry{{ID: "sport", Name: "Sport"}},
		})
		require.NoError(t, err)
		path, ok := menu.Landing(tree)
		require.True(t, ok)
		require.Equal(t, "sport/pool", path)
	})

	t.Run("empty tree has no landing", func(t *testing.T) {
		_, ok := menu.Landing(nil)
		require.False(t, ok)
	})
}

func TestCompilePublishesAtomically(t *testing.T) {
	reg := menu.NewRegistry()
	release := make(chan struct{})
	reg.RegisterPage("Articles", func() http.Handler {
		<-release
		return nopHandler()
	})
	reg.RegisterPage("Roles", nopHandler)
	reg.RegisterTopicView(menu.TopicPoolID, nopHandler)
	reg.RegisterTopicView(menu.TopicFollowID, nopHandler)

	c := menu.NewCompiler(reg, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Compile(menu.Descriptor{
			Pages:  []menu.Entry{{ID: "articles", Name: "articles"}, {ID: "roles", Name: "rôles"}},
			Topics: []menu.Entry{{ID: "sport", Name: "Sport"}},
		})
		require.NoError(t, err)
	}()

	// While a resolution is still pending, the shell must keep seeing the
	// previous tree (here: no tree at all), never an in-between count.
	for i := 0; i < 20; i++ {
		require.Nil(t, c.Tree())
		time.Sleep(time.Millisecond)
	}

	close(release)
	<-done
	require.Len(t, c.Tree(), 3)
}
