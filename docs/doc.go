// Package docs provides generated OpenAPI documentation.
//
// Abstractor API
//
//	@title			Abstractor API
//	@version		1.0
//	@description	Foreclosure File Abstract extraction API for uploading PDF batches, tracking jobs, and generating documents.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/quorumtitle/abstractor
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/abstractor/serve.go -o ./swagger --parseDependency --parseInternal
