//go:build !waterdebug

package statemap

const boundsChecks = false
