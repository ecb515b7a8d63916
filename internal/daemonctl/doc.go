// Package daemonctl inspects and stops a videowatch daemon running in
// another process, using the flock lock and pid file the daemon writes under
// the state directory.
package daemonctl
