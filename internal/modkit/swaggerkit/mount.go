// Package swaggerkit serves the OpenAPI document and Swagger UI
package swaggerkit

import (
	"net/http"

	phttp "feedweave/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocsPath is where the UI lives, the document is DocsPath + "/doc.json"
const DocsPath = "/api/docs"

// Mount serves the UI and document when enabled, both /api/docs and /api/docs/ land on the UI
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	ui := httpSwagger.Handler(
		httpSwagger.InstanceName("feedweave"),
		httpSwagger.URL(DocsPath+"/doc.json"),
		httpSwagger.DocExpansion("list"),
	)
	r.Route(DocsPath, func(docs phttp.Router) {
		docs.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, DocsPath+"/index.html", http.StatusPermanentRedirect)
		})
		docs.Get("/doc.json", serveDocJSON())
		docs.Handle("/*", ui)
	})
}
