// Package preflight provides readiness checks for the external tools,
// directories, and delivery channel that videowatch depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure. A failed
//     check does not stop the watcher; jobs that hit the problem fail and
//     are recorded like any other failure.
//   - The CLI "videowatch status" command uses the individual check
//     functions to display health.
package preflight
