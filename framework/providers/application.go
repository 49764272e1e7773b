package providers

import (
	"net/http"

	gohttp "github.com/km-arc/pibox/framework/http"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/routing"
)

// JSONErrors answers unmatched routes with JSON bodies instead of chi's
// plain-text defaults.
type JSONErrors struct{ plugins.Plugin }

func (*JSONErrors) ConfigureApplication(r *routing.Router) error {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w, req).NotFound()
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w, req).MethodNotAllowed()
	})
	return nil
}
