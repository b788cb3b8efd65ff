package endpoints

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints/admin"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints/public"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints/utils"
)

// NewRouter assembles the HTTP surface: recovery and request logging wrap
// everything, CORS is wide open for local frontends.
func NewRouter(pub *public.PublicManager, adm *admin.AdminManager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(utils.RequestLogger(log.GetLogger("http")))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler)

	pub.Mount(r)
	adm.Mount(r)
	return r
}
