// Package views holds the built-in console pages. Each view is registered
// under its capitalized identifier at startup; the menu compiler only ever
// resolves views that exist in this table, which replaces loading views
// dynamically by name.
package views

import (
	"encoding/json"
	"net/http"

	"github.com/editorialdesk/console/menu"
)

// Page is the payload a view hands the frontend shell: enough to render the
// listing chrome while the data itself is fetched from the backend.
type Page struct {
	Title    string   `json:"title"`
	Resource string   `json:"resource"`
	Columns  []string `json:"columns,omitempty"`
}

func render(p Page) menu.Constructor {
	return func() http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(p)
		})
	}
}

// RegisterBuiltins fills the registry with every known page and the fixed
// topic sub-views.
func RegisterBuiltins(r *menu.Registry) {
	r.RegisterPage("Articles", render(Page{
		Title:    "Articles",
		Resource: "articles",
		Columns:  []string{"titre", "categorie", "auteur", "statut", "date"},
	}))
	r.RegisterPage("Roles", render(Page{
		Title:    "Rôles",
		Resource: "roles",
		Columns:  []string{"nom", "privileges"},
	}))
	r.RegisterPage("Users", render(Page{
		Title:    "Utilisateurs",
		Resource: "users",
		Columns:  []string{"username", "nom", "prenom", "email", "role"},
	}))
	r.RegisterPage("Tags", render(Page{
		Title:    "Tags",
		Resource: "tags",
		Columns:  []string{"nom", "articles"},
	}))
	r.RegisterPage("Categories", render(Page{
		Title:    "Catégories",
		Resource: "categories",
		Columns:  []string{"nom", "parent"},
	}))
	r.RegisterPage("Logs", render(Page{
		Title:    "Logs",
		Resource: "logs",
		Columns:  []string{"level", "message", "folder", "action", "date"},
	}))
	r.RegisterPage("Login_erreurs", render(Page{
		Title:    "Erreurs connexion",
		Resource: "logs/login",
		Columns:  []string{"username", "ip", "date"},
	}))
	r.RegisterPage("Front", render(Page{
		Title:    "Erreurs saisie",
		Resource: "logs/front",
		Columns:  []string{"level", "message", "date"},
	}))

	r.RegisterTopicView(menu.TopicPoolID, render(Page{
		Title:    "Actualité",
		Resource: "topics/pool",
		Columns:  []string{"titre", "source", "date"},
	}))
	r.RegisterTopicView(menu.TopicFollowID, render(Page{
		Title:    "Follow my news",
		Resource: "topics/follow",
		Columns:  []string{"titre", "statut", "date"},
	}))
}
