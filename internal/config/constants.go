package config

const Version = "0.4.0"

const SourceFileExt = ".c"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".c", ".i", ".h"}

// Configuration file names, searched from the program's directory up.
const (
	ConfigFileName    = "ctaint.yaml"
	ConfigFileNameAlt = "ctaint.yml"
)

// Defaults applied when the configuration leaves a field empty.
const (
	DefaultErrorFunction = "reach_error"
	DefaultNonDetPattern = "__VERIFIER_nondet_*"
	DefaultResultsDB     = "ctaint-results.db"
	DefaultNonDetValue   = 1
	DefaultMaxCallDepth  = 4096
	// DefaultMemoryLimit matches the 8 MiB stack the validator was
	// historically run with. Zero in the file means unlimited.
	DefaultMemoryLimit = 8 << 20
)

// Witness validation verdicts. The numbers are the validator's exit
// statuses; they stay clear of ordinary program statuses.
const (
	ExitValidated            = 0
	ExitBadWitness           = 2
	ExitUsage                = 3
	ExitUnknown              = 4
	ExitErrorNotCalled       = 5
	ExitNoWitness            = 240
	ExitWitnessInSink        = 241
	ExitProgramFinished      = 242
	ExitIllegalState         = 243
	ExitUndefined            = 244
	ExitFinishedViolation    = 245
	ExitAlreadyDefined       = 246
	ExitNonDetMisuse         = 247
	ExitAssertionFailed      = 248
	ExitBadFunction          = 249
	ExitUnvalidatedViolation = 250
	ExitOutOfMemory          = 251
)

// Verdict names as stored in the results database.
const (
	VerdictValidated   = "validated"
	VerdictUnvalidated = "unvalidated"
	VerdictFinished    = "finished"
	VerdictError       = "error"
	VerdictRun         = "run"
)
