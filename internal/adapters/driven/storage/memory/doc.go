// Package memory provides in-memory implementations of the storage ports.
// They are the default backing for single-process deployments and tests;
// nothing survives a restart.
package memory
