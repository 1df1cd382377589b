// Package domain holds the core newsletter entities shared across the
// service: subscribers, published posts, and per-publish delivery results.
// Types here carry no behavior beyond normalization and validation helpers;
// persistence lives in internal/store and orchestration in internal/publish.
package domain
