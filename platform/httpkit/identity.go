package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller, scoped to one organization.
type Identity interface {
	UserID() uuid.UUID
	TenantID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	tenantID      uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID   { return i.userID }
func (i *identity) TenantID() uuid.UUID { return i.tenantID }
func (i *identity) Roles() []string     { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthenticated requires both a user and a tenant; every lead operation is org-scoped.
func (i *identity) IsAuthenticated() bool {
	return i.authenticated && i.tenantID != uuid.Nil
}

// GetIdentity extracts the Identity from a Gin context.
func GetIdentity(c *gin.Context) Identity {
	userValue, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	userID, ok := userValue.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	id := &identity{userID: userID, authenticated: true}
	if tenantValue, ok := c.Get(ContextTenantIDKey); ok {
		id.tenantID, _ = tenantValue.(uuid.UUID)
	}
	if rolesValue, ok := c.Get(ContextRolesKey); ok {
		id.roles, _ = rolesValue.([]string)
	}
	return id
}

// MustGetIdentity aborts with 401 when the caller has no user or tenant.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
