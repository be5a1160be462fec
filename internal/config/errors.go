package config

import "errors"

// Errors returned by [Load].
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrPathEmpty          = errors.New("path cannot be empty")
	ErrCapacityInvalid    = errors.New("cache_capacity out of range")
	ErrCompressionInvalid = errors.New("cache_compression must be none, zstd or lz4")
	ErrLimitInvalid       = errors.New("candidate_limit must be >= 1")
	ErrDepthInvalid       = errors.New("max_walk_depth must be >= 1")
	ErrJobsInvalid        = errors.New("jobs must be >= 1")
	ErrLogLevelInvalid    = errors.New("log_level must be debug, info, warn or error")
	ErrLogFormatInvalid   = errors.New("log_format must be console or json")
)
