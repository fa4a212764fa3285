package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 允许浏览器前端跨域访问 API。
var CORS = cors.Handler(cors.Options{
	AllowedOrigins:       []string{"*"},
	AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	AllowedHeaders:       []string{"Accept", "Content-Type", "X-Request-ID"},
	ExposedHeaders:       []string{"X-Request-ID"},
	MaxAge:               300,
	OptionsSuccessStatus: http.StatusNoContent,
})
