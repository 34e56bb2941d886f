// Package types defines the Directory and Table interfaces, the festival,
// category and place entities, and the standard error values shared by the
// storage backends, the breadcrumb engine bindings, the API and the CLI.
package types
