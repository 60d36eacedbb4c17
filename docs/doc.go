// Package docs provides generated OpenAPI documentation.
//
// Boighor API
//
//	@title			Boighor API
//	@version		1.0
//	@description	Digital library API: catalog, file storage, LLM book assistant and the server-side PDF reader.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/boighor
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/boighor/serve.go -o ./swagger --parseDependency --parseInternal --outputTypes go
