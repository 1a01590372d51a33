package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zanmisante/zanmisante/config"
	"zanmisante/zanmisante/controllers"
	"zanmisante/zanmisante/middlewares"
	"zanmisante/zanmisante/utils/types"
)

func AuthRoutes(ctrl *controllers.AuthController, cfg config.Config) chi.Router {
	r := chi.NewRouter()

	r.Post("/login", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		token, err := ctrl.Login(r.Context(), req.Username)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return map[string]string{"token": token}, http.StatusOK, nil
	}))

	r.Post("/signup", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		token, err := ctrl.Signup(r.Context(), req.Username, req.Email, req.FullName)
		if err != nil {
			if errors.Is(err, controllers.ErrUserExists) {
				return nil, http.StatusConflict, err
			}
			return nil, http.StatusInternalServerError, err
		}
		return map[string]string{"token": token}, http.StatusOK, nil
	}))

	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))
		gr.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Context().Value(middlewares.SessionIDKey).(string)
			ctrl.Logout(sessionID)
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}
