// Package infra holds the adapters behind the core interfaces: the MQTT and
// REST network collaborators, the in-memory network, metrics sinks, logging
// and error monitoring. Nothing under core imports these packages.
package infra
