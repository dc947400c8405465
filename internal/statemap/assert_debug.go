//go:build waterdebug

package statemap

const boundsChecks = true
