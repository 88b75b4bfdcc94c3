// Package publish replicates a distribution root to a target location.
//
// A publish runs through Validating, Cleaning and Uploading and ends in Complete or Failed.
// Targets are reached through a Transport: a local directory or an FTP server. The Publisher
// guarantees that at most one publish per project is in flight.
package publish
