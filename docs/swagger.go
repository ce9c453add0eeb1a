// Package docs Buzzaar API
//
// @title  Buzzaar API
// @version 0.1.0
// @description Marketplace backend: product catalog with reviews, user and seller accounts, password recovery.
// @host      localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package docs

import (
	_ "buzzaar/cmd/server/handlers/httperr"
	_ "buzzaar/internal/services/accounts"
	_ "buzzaar/internal/services/catalog"
)
