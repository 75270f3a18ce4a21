package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rently/backend/internal/interfaces/http/dto"
)

// LandlordIDKey is the context key the acting landlord's ID is stored under
const LandlordIDKey = "landlord_id"

// LandlordHeader is the header carrying the acting landlord's identity.
// Authentication happens upstream (gateway); this service only scopes by it.
const LandlordHeader = "X-Landlord-ID"

// RequireLandlord extracts the landlord ID from the request header and
// rejects requests without a valid one.
func RequireLandlord() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(LandlordHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Missing "+LandlordHeader+" header"))
			return
		}

		landlordID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Invalid "+LandlordHeader+" header"))
			return
		}

		c.Set(LandlordIDKey, landlordID)
		c.Next()
	}
}

// GetLandlordID returns the landlord ID stored by RequireLandlord
func GetLandlordID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(LandlordIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
