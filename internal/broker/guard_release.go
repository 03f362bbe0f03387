//go:build !assetdebug

package broker

const panicOnViolation = false
