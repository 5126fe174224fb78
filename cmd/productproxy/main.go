// Package main is the entry point for the application.
//
// @title Product Proxy API
// @version 1.0
// @description Product CRUD backed by the restful-api.dev object store.
//
// @host localhost:8080
// @BasePath /api
// @schemes http https
package main

import "github.com/yourorg/productproxy/cmd/productproxy/cmd"

//go:generate swag init -d ../.. -g cmd/productproxy/main.go -o ../../docs

func main() {
	cmd.Execute()
}
