// Package types defines the Item and Profile model, the Backend capability
// interface, change events, and the error taxonomy shared by every storage
// backend of the fileractions configuration layer.
package types
