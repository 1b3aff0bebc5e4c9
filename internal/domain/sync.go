package domain

import "time"

// SyncStats holds the outcome of one sync or cleanup run.
type SyncStats struct {
	Channel       string
	Fetched       int
	Orders        int
	Items         int
	DeletedOrders int
	DeletedItems  int
	Duration      time.Duration
}
