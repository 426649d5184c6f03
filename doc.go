// Package backend provides the Nextolk API server.

// This package only carries documentation. The code is organized into
// subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Registration, JWT access and refresh tokens
// - internal/otp: Phone number verification codes
// - internal/repository: Users, profiles, follows and counters
// - internal/queue: Background video transcoding
// - internal/storage: Media storage (S3, local disk, memory)
// - internal/search: Elasticsearch with a database fallback
// - internal/websocket: WebSocket notifications
// - internal/maintenance: Scheduled housekeeping sweep
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (auth, rate limiting, caching, metrics)
// - internal/seed: Fake data for development

// See the individual package documentation for detailed API reference.
package backend
