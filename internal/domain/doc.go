// Package domain contains the core business concepts for the boletim renderer:
// the request entities, their validation and the error taxonomy.
// Keep this package free of transport (HTTP) and infrastructure (Chrome/Redis) concerns.
package domain
