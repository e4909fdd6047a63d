package storage

import "memed/internal/ports"

// Provider is the storage contract shared by the API and the tracker.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
