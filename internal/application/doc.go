// Package application provides application initialization and dependency wiring.
// It loads the delivery options, builds the eligibility store, metrics,
// handlers, routers, and the HTTP server, keeping the main package focused
// on CLI parsing and orchestration.
package application
