package handler

import (
	"cabshare/backend/internal/ridehub"
	"cabshare/backend/internal/rides"
	"cabshare/backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Handler carries the ride engine and the connection hub into the gin
// routes.
type Handler struct {
	Rides   *rides.Service
	Hub     *ridehub.Manager
	Storage storage.Storage
	Redis   *redis.Client
}

func NewHandler(r *rides.Service, hub *ridehub.Manager, s storage.Storage, rdb *redis.Client) *Handler {
	return &Handler{Rides: r, Hub: hub, Storage: s, Redis: rdb}
}
