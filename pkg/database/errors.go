package database

import "errors"

// ErrNotReady indicates the connection pool failed its startup ping.
var ErrNotReady = errors.New("database not ready")
