// Package application provides application initialization and dependency wiring.
// It chooses the product provider and storage backend from configuration and
// builds the plan store, packer, handlers, routers and HTTP server, keeping
// the main package focused on CLI parsing and orchestration.
package application
