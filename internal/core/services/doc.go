// Package services implements the core application logic behind the driving
// ports: document ingestion with change detection, hybrid lexical/semantic
// retrieval with score fusion, and the embedding backlog worker.
//
// Services depend only on the driven ports; adapters are injected at startup.
package services
