// Package menu turns the backend-provided permission+menu payload into the
// console's navigation tree: direct pages resolve to registered views, topics
// get the fixed pool/follow pair, and the whole tree is published atomically.
package menu

import (
	"strings"

	apperrors "github.com/editorialdesk/console/internal/errors"
)

// Entry is one menu item. The identifier doubles as the route path segment.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Descriptor is the server-provided menu payload, read-only input to the
// compiler. Pages come first, then topics, in backend order.
type Descriptor struct {
	Privileges []string `json:"privileges"`
	Pages      []Entry  `json:"other"`
	Topics     []Entry  `json:"topics"`
}

// Len returns the number of top-level entries.
func (d Descriptor) Len() int {
	return len(d.Pages) + len(d.Topics)
}

// Validate enforces the descriptor invariant: entry identifiers are unique.
func (d Descriptor) Validate() error {
	seen := make(map[string]struct{}, d.Len())
	for _, e := range append(append([]Entry{}, d.Pages...), d.Topics...) {
		if _, dup := seen[e.ID]; dup {
			return apperrors.Wrapf(apperrors.ErrDuplicateMenuEntry, "id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// PathName normalizes a menu name into its route segment, covering the
// accented and multi-word names the backend still sends.
func PathName(name string) string {
	switch strings.ToLower(name) {
	case "erreurs connexion":
		return "login_erreurs"
	case "erreurs saisie":
		return "front"
	case "rôles":
		return "roles"
	case "utilisateurs":
		return "users"
	case "catégories":
		return "categories"
	case "galerie articles":
		return "gallery_articles"
	default:
		return strings.ReplaceAll(strings.ToLower(name), " ", "_")
	}
}

// Icon maps a menu name to its sidebar icon identifier.
func Icon(name string) string {
	iconMap := map[string]string{
		"acceuil":           "home",
		"articles":          "file-document-outline",
		"roles":             "badge-account-horizontal",
		"rôles":             "badge-account-horizontal",
		"utilisateurs":      "account-group",
		"tags":              "tag",
		"bannieres":         "advertisements",
		"dossiers":          "folder",
		"settings":          "cogs",
		"erreurs saisie":    "message-alert",
		"erreurs connexion": "file-document-alert",
		"images":            "image",
		"blocage":           "block-helper",
		"media":             "multimedia",
		"infographies":      "panorama-variant-outline",
		"galeries":          "image-multiple",
		"videos":            "video-box",
		"cahiers":           "book-open-page-variant",
		"abonne":            "account-star",
		"abonnes":           "account-star",
		"urgence":           "car-emergency",
	}

	lower := strings.ToLower(name)
	if icon, ok := iconMap[lower]; ok {
		return icon
	}
	switch {
	case strings.Contains(lower, "log"):
		return "text-box-search"
	case strings.Contains(lower, "article"):
		return "file-document-outline"
	case strings.Contains(lower, "cat"):
		return "shape"
	default:
		return "circle-outline"
	}
}
