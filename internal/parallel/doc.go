// Package parallel provides the worker pool that runs image encoding off
// the render goroutine.
package parallel
