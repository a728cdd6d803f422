// cmd/main.go
package main

import (
	"go-marketplace-api/app"
)

// @title           Go-Marketplace API
// @version         1.0
// @description     Account and session service for the marketplace.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
