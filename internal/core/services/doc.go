// Package services implements the core application logic: similarity
// ranking, document ingestion, chat orchestration, the dashboard context
// detector and the change notifier.
package services
