// Package poll loads published approval polls into an immutable dataset that
// the trend pipeline consumes. It handles the complete ingestion lifecycle:
// reading CSV or Excel files, resolving the expected columns, validating
// rows, and deriving disapproval when the source omits it.
//
// # Data Model
//
// An Observation is one published poll: pollster name, calendar date, and an
// approve/disapprove pair in percentage points. Dates never carry a
// time-of-day component. When the source file has no Disapprove column the
// value is derived exactly once at load time as 100 - Approve; nothing
// downstream can tell a derived value from a provided one.
//
// # Usage
//
//	loader := poll.NewLoader(logger)
//	dataset, err := loader.Load("data/polls.csv")
//	if err != nil {
//	    var confErr *poll.ConfigurationError
//	    if errors.As(err, &confErr) {
//	        // the file schema is wrong; do not run the pipeline
//	    }
//	}
//	pollsters := dataset.Pollsters() // distinct, sorted
//
// # Error Handling
//
// A missing required column (pollster, date, Approve) is fatal and reported
// as a *ConfigurationError naming every missing column. Individual rows that
// fail to parse are skipped with a warning; a header-only file loads as a
// valid empty dataset.
package poll
