package pdv

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pdv-backend/api/middleware"
)

func storeIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return middleware.StoreUUIDFromContext(r.Context())
}

func actorFromRequest(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return actor.StoreID, actor.UserID, nil
}
