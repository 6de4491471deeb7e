// Package catalog reads delivery eligibility tables and basket documents and
// keeps the active eligibility table in memory for the HTTP service.
package catalog
