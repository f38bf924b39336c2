// Package serverrun wires configuration, storage, the broker and the
// services into the api and worker processes.
package serverrun
