package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (unreadable or invalid config file)
	ExitUnsupported = 3 // Identifier rejected before any search (PDF, Word, FTP)
	ExitNotFound    = 4 // Search exhausted; only with --strict
)
