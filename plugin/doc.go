// Package plugin defines the contract an authentication method implements
// to join the identity provider.
//
// The core Plugin interface covers dispatch and login-page rendering. A
// plugin extends its HTTP surface by additionally implementing any of the
// optional registrar interfaces; the coordinator wires each extension
// point only when the plugin both implements the interface and was
// granted the matching capability. The two conditions are independent and
// both required: an implemented registrar without its capability fails
// registration, it is never silently skipped.
package plugin
