// Package exitcodes defines the exit codes used by asmtest.
package exitcodes

// Exit code constants used by asmtest
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when every case passed and every suite could be run
// * TestFailure (1): Used when a case failed or a suite was missing or malformed
// * RuntimeErr (2): Used for runtime errors such as a bad configuration or an unwritable report
const (
	Success     = 0 // All cases pass
	TestFailure = 1 // Case failures or suite errors
	RuntimeErr  = 2 // Runtime errors
)
