package exitcode

const (
	Success        = 0
	UsageError     = 1
	RulesError     = 2
	DBConnError    = 3
	RunError       = 4
	LogWriteError  = 5
	PartialSuccess = 6
)
