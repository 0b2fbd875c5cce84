package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is implemented by each route group owner. Root names the
// group's path segment; SetRoutes attaches its endpoints to the public,
// authenticated, and admin groups.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
