// Package daemon coordinates the long-running videowatch process.
//
// It ties the filesystem watcher to the dispatcher under a flock-based
// single-instance lock, so two watchers never race on the same directories.
// Start acquires the lock and begins watching; Stop cancels the watch,
// waits for in-flight jobs to finish, and releases the lock.
//
// Keep orchestration logic here: conversion, delivery, and history live in
// their own packages while the daemon focuses on startup and shutdown.
package daemon
