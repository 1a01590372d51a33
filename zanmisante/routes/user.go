package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zanmisante/zanmisante/config"
	"zanmisante/zanmisante/controllers"
	"zanmisante/zanmisante/middlewares"
	"zanmisante/zanmisante/utils/types"
)

func UserRoutes(ctrl *controllers.UserController, cfg config.Config) chi.Router {
	r := chi.NewRouter()

	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/me", handleJSON(func(r *http.Request) (any, int, error) {
			id := r.Context().Value(middlewares.UserIDKey).(int)
			user, err := ctrl.GetUser(r.Context(), id)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			if user == nil {
				return nil, http.StatusNotFound, nil
			}
			return user, http.StatusOK, nil
		}))

		gr.Put("/me", handleJSON(func(r *http.Request) (any, int, error) {
			id := r.Context().Value(middlewares.UserIDKey).(int)
			var req types.UpdateUserRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			user, err := ctrl.UpdateUser(r.Context(), id, req.Email, req.FullName, req.ImageURL)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return user, http.StatusOK, nil
		}))
	})

	return r
}
